package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/guestbook"
	"github.com/letrongvang/go-profile-card/profile"
	"github.com/letrongvang/go-profile-card/store"
	"github.com/letrongvang/go-profile-card/visit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()

	syncer := visit.NewSyncer(st, nil, visit.NewRecorder(store.NewMemoryStorage()), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go syncer.Run(ctx)

	hub := NewHub(syncer.Snapshots(), zap.NewNop())
	go hub.Run(ctx)

	card, err := profile.Load("")
	require.NoError(t, err)

	router := NewRouter(Deps{
		Log:       zap.NewNop(),
		Card:      card,
		Syncer:    syncer,
		Guestbook: guestbook.NewService(st, zap.NewNop()),
		Hub:       hub,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHandler_Profile(t *testing.T) {
	srv, _ := setupTestServer(t)

	var card profile.Card
	code := getJSON(t, srv.URL+"/api/profile", &card)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Letrongvang", card.Name)
	assert.NotEmpty(t, card.Stats)
}

func TestHandler_Visitors(t *testing.T) {
	srv, _ := setupTestServer(t)

	// The syncer counts the visit asynchronously; the endpoint shows a
	// placeholder until the first live snapshot lands.
	require.Eventually(t, func() bool {
		var resp struct {
			Count *int64 `json:"count"`
			Error *string
		}
		getJSON(t, srv.URL+"/api/visitors", &resp)
		return resp.Count != nil && *resp.Count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_GuestbookSubmit(t *testing.T) {
	srv, st := setupTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/guestbook", `{"name":"Al","message":"hi"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	entries, err := st.ListEntries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Al", entries[0].Name)
	assert.Equal(t, "hi", entries[0].Message)
}

func TestHandler_GuestbookShortNameRejected(t *testing.T) {
	srv, st := setupTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/guestbook", `{"name":"A","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	entries, _ := st.ListEntries(context.Background(), 0)
	assert.Empty(t, entries, "no write for an invalid name")
}

func TestHandler_GuestbookMalformedBody(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/api/guestbook", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_GuestbookList(t *testing.T) {
	srv, _ := setupTestServer(t)

	postJSON(t, srv.URL+"/api/guestbook", `{"name":"Al","message":"hi"}`)
	postJSON(t, srv.URL+"/api/guestbook", `{"name":"Bea","message":"yo"}`)

	var resp struct {
		Entries []store.Entry `json:"entries"`
	}
	code := getJSON(t, srv.URL+"/api/guestbook?limit=10", &resp)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "Bea", resp.Entries[0].Name)
}

func TestHandler_WebSocketLiveFeed(t *testing.T) {
	srv, st := setupTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
	defer conn.Close()

	// First message carries the current count.
	msg := readWsMsg(t, conn)
	assert.Equal(t, MsgCount, msg.Type)
	require.NotNil(t, msg.Count)
	assert.Equal(t, int64(1), *msg.Count)

	// A counter change from elsewhere reaches the feed.
	require.NoError(t, st.IncrementCounter(context.Background(), 1))
	for {
		msg = readWsMsg(t, conn)
		require.NotNil(t, msg.Count)
		if *msg.Count == 2 {
			break
		}
	}
}

func readWsMsg(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}
