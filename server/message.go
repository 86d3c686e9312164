package server

import (
	"encoding/json"

	"github.com/letrongvang/go-profile-card/visit"
)

// MsgCount is the only message type pushed over the live feed.
const MsgCount = "count"

// ServerMessage is a message from server to a live-feed client. Count is
// nil while the first snapshot has not arrived, rendered as a loading
// placeholder.
type ServerMessage struct {
	Type  string `json:"type"`
	Count *int64 `json:"count"`
	Error string `json:"error,omitempty"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

func snapshotMessage(snap visit.Snapshot) ServerMessage {
	m := ServerMessage{Type: MsgCount, Error: snap.Err}
	if snap.Known {
		count := snap.Count
		m.Count = &count
	}
	return m
}
