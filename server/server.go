// Package server streams research progress to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/xhad/webqa/internal/types"
	"github.com/xhad/webqa/pkg/research"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message types sent to clients.
const (
	TypeStatus   = "status"
	TypeProgress = "progress"
	TypeResponse = "response"
	TypeError    = "error"
)

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// Asker runs one question. *research.Researcher implements it.
type Asker interface {
	Ask(ctx context.Context, question string, progress research.ProgressFunc) (*research.Result, error)
}

type WSServer struct {
	asker  Asker
	memory types.Memory
	logger *zap.Logger
	router chi.Router
}

// NewWSServer builds the router. memory may be nil, which disables the
// history endpoint.
func NewWSServer(asker Asker, memory types.Memory, logger *zap.Logger) *WSServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WSServer{asker: asker, memory: memory, logger: logger}
	s.setupRoutes()
	return s
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *WSServer) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/ws", s.handleWebSocket)
	r.Get("/api/history", s.handleHistory)

	s.router = r
}

func (s *WSServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)))
	})
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	logger *zap.Logger
}

func (c *conn) send(msgType, content string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		c.logger.Debug("error sending message", zap.Error(err))
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	c := &conn{ws: ws, logger: s.logger}

	// questions outlive the request context once the connection is hijacked
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("error reading message", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(TypeError, fmt.Sprintf("invalid message: %v", err), nil)
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			c.send(TypeError, "empty question", nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	c.send(TypeStatus, "Researching: "+msg.Content, nil)

	res, err := s.asker.Ask(ctx, msg.Content, func(e research.Event) {
		c.send(TypeProgress, e.State.String(), map[string]string{
			"url":     e.URL,
			"message": e.Message,
		})
	})
	if err != nil {
		s.logger.Warn("question failed", zap.String("question", msg.Content), zap.Error(err))
		c.send(TypeError, err.Error(), nil)
		return
	}

	c.send(TypeResponse, res.Answer, map[string]any{
		"session_id": res.SessionID,
		"visited":    res.Visited,
	})
}

func (s *WSServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		http.Error(w, "page memory is not configured", http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	pages, err := s.memory.Recall(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("recall failed", zap.Error(err))
		http.Error(w, "recall failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pages); err != nil {
		s.logger.Debug("error writing response", zap.Error(err))
	}
}
