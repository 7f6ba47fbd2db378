package http

import (
	"context"
	"sync"

	"bible-quiz-service/internal/domain"
	"bible-quiz-service/internal/event"
)

// Hub fans narration events out to the sockets watching each session.
// Narration older than the last stop, cooldown or delivered narration of its
// session is dropped.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[chan message]struct{}
	floors   map[string]int64
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[chan message]struct{}),
		floors:   make(map[string]int64),
	}
}

// Register subscribes the hub to the narration events on bus.
func (h *Hub) Register(bus *event.Bus) {
	bus.Subscribe(domain.EventNarrationReady, h.onEvent)
	bus.Subscribe(domain.EventNarrationStopped, h.onEvent)
	bus.Subscribe(domain.EventCooldownStarted, h.onEvent)
}

func (h *Hub) join(sessionID string) (<-chan message, func()) {
	ch := make(chan message, 8)
	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[chan message]struct{})
	}
	h.sessions[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	leave := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		conns, ok := h.sessions[sessionID]
		if !ok {
			return
		}
		if _, ok := conns[ch]; ok {
			delete(conns, ch)
			close(ch)
		}
		if len(conns) == 0 {
			delete(h.sessions, sessionID)
			delete(h.floors, sessionID)
		}
	}
	return ch, leave
}

func (h *Hub) onEvent(_ context.Context, e event.Event) error {
	switch ev := e.(type) {
	case domain.NarrationReady:
		if !h.advance(ev.SessionID, ev.Version, true) {
			return nil
		}
		h.broadcast(ev.SessionID, message{Type: msgNarration, Payload: narrationPayload{
			Version:  ev.Version,
			Index:    ev.Index,
			Text:     ev.Text,
			Audio:    ev.Audio,
			MimeType: ev.MimeType,
		}})
	case domain.NarrationStopped:
		h.advance(ev.SessionID, ev.Version, false)
		h.broadcast(ev.SessionID, message{Type: msgNarrationStopped})
	case domain.CooldownStarted:
		h.advance(ev.SessionID, ev.Version, false)
		h.broadcast(ev.SessionID, message{Type: msgCooldown, Payload: cooldownPayload{Seconds: ev.Seconds}})
	}
	return nil
}

// advance raises the narration floor of a watched session to version. For a
// narration it reports false, leaving the floor alone, when version is
// below the floor.
func (h *Hub) advance(sessionID string, version int64, narration bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, watched := h.sessions[sessionID]; !watched {
		return true
	}
	floor := h.floors[sessionID]
	if narration && version < floor {
		return false
	}
	if version > floor {
		h.floors[sessionID] = version
	}
	return true
}

func (h *Hub) broadcast(sessionID string, msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.sessions[sessionID] {
		select {
		case ch <- msg:
		default:
			// slow socket; narration is best effort
		}
	}
}
