package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/visit"
)

// Hub fans syncer snapshots out to every connected live-feed client. One
// goroutine owns the client set; joins, leaves and broadcasts are
// serialized through its loop.
type Hub struct {
	log       *zap.Logger
	snapshots <-chan visit.Snapshot

	register   chan *Client
	unregister chan *Client
	clients    map[*Client]bool

	last     visit.Snapshot
	haveLast bool
}

func NewHub(snapshots <-chan visit.Snapshot, log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		snapshots:  snapshots,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		clients:    make(map[*Client]bool),
	}
}

// Run is the hub's main loop. It returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			if h.haveLast {
				c.sendMsg(snapshotMessage(h.last))
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case snap, ok := <-h.snapshots:
			if !ok {
				h.snapshots = nil
				continue
			}
			h.last = snap
			h.haveLast = true
			msg := snapshotMessage(snap)
			for c := range h.clients {
				c.sendMsg(msg)
			}
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}
