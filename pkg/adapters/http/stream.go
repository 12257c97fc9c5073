package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/internal/logging"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans session snapshots out to SSE subscribers.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{} // session ID -> channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		logger:      logging.NewNop(),
		subscribers: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel of encoded snapshots for sessionID and a cancel func.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients drop messages.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// BroadcastSnapshot encodes snap and broadcasts it to its session.
func (sm *StreamManager) BroadcastSnapshot(snap *scorebridge.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		sm.logger.Error("failed to encode snapshot", "session_id", snap.ID, "err", err)
		return
	}
	sm.Broadcast(snap.ID, data)
}

// subscribeEvents handles GET /sessions/{id}/events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
