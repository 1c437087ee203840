package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/webqa/internal/models"
	"github.com/xhad/webqa/pkg/research"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeAsker struct {
	err error
}

func (f fakeAsker) Ask(_ context.Context, question string, progress research.ProgressFunc) (*research.Result, error) {
	progress(research.Event{State: research.StateEvaluating, URL: "https://example.com", Message: "fetching"})
	if f.err != nil {
		return nil, f.err
	}
	return &research.Result{
		SessionID: "session-1",
		Question:  question,
		Answer:    "ten dollars",
		Visited:   []string{"https://example.com"},
	}, nil
}

type fakeMemory struct{}

func (fakeMemory) Remember(context.Context, string, models.PageRecord) error { return nil }

func (fakeMemory) Recall(_ context.Context, query string, _ int) ([]models.PageRecord, error) {
	return []models.PageRecord{{URL: "https://example.com", Title: query}}, nil
}

func (fakeMemory) Close() {}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

// readUntil collects messages until one of the given type arrives.
func readUntil(t *testing.T, ws *websocket.Conn, msgType string) []Message {
	t.Helper()
	var msgs []Message
	for {
		var msg Message
		require.NoError(t, ws.ReadJSON(&msg))
		msgs = append(msgs, msg)
		if msg.Type == msgType {
			return msgs
		}
	}
}

func TestWebSocketStreamsResponse(t *testing.T) {
	srv := httptest.NewServer(NewWSServer(fakeAsker{}, nil, nil))
	defer srv.Close()

	ws := dial(t, srv)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(Message{Type: "question", Content: "What is the price?"}))
	msgs := readUntil(t, ws, TypeResponse)

	require.Len(t, msgs, 3)
	assert.Equal(t, TypeStatus, msgs[0].Type)
	assert.Equal(t, "Researching: What is the price?", msgs[0].Content)
	assert.Equal(t, TypeProgress, msgs[1].Type)
	assert.Equal(t, "evaluating", msgs[1].Content)
	assert.Equal(t, "ten dollars", msgs[2].Content)

	data, ok := msgs[2].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "session-1", data["session_id"])
}

func TestWebSocketErrors(t *testing.T) {
	srv := httptest.NewServer(NewWSServer(fakeAsker{err: errors.New("search failed")}, nil, nil))
	defer srv.Close()

	ws := dial(t, srv)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	msgs := readUntil(t, ws, TypeError)
	assert.Contains(t, msgs[0].Content, "invalid message")

	require.NoError(t, ws.WriteJSON(Message{Type: "question", Content: "  "}))
	msgs = readUntil(t, ws, TypeError)
	assert.Equal(t, "empty question", msgs[0].Content)

	require.NoError(t, ws.WriteJSON(Message{Type: "question", Content: "What is the price?"}))
	msgs = readUntil(t, ws, TypeError)
	assert.Equal(t, "search failed", msgs[len(msgs)-1].Content)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewWSServer(fakeAsker{}, nil, nil))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestHistory(t *testing.T) {
	rec := httptest.NewRecorder()
	NewWSServer(fakeAsker{}, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?q=pricing", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s := NewWSServer(fakeAsker{}, fakeMemory{}, nil)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?q=pricing&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var pages []models.PageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "pricing", pages[0].Title)
}
