package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// streamBacklog is how many recent events are kept for Last-Event-ID replay.
	streamBacklog = 256

	streamKeepalive = 15 * time.Second
)

// streamEvent is one published event as delivered to stream subscribers.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventHub fans published events out to GET /v1/events/stream subscribers.
type eventHub struct {
	mu      sync.Mutex
	subs    map[*streamSub]struct{}
	lastID  uint64
	backlog []streamEvent // oldest first, at most streamBacklog entries
}

type streamSub struct {
	patterns []string
	ch       chan streamEvent
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[*streamSub]struct{})}
}

// broadcast records the event and offers it to every matching subscriber.
// Slow subscribers miss events rather than blocking the publisher.
func (h *eventHub) broadcast(topic string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := streamEvent{ID: h.lastID, Topic: topic, Data: data}
	if len(h.backlog) == streamBacklog {
		copy(h.backlog, h.backlog[1:])
		h.backlog = h.backlog[:streamBacklog-1]
	}
	h.backlog = append(h.backlog, evt)

	for sub := range h.subs {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// subscribe registers a subscriber and returns the backlog events after
// lastID that match its patterns. Both happen under one lock so no event
// is delivered twice or lost in between.
func (h *eventHub) subscribe(patterns []string, lastID uint64) (*streamSub, []streamEvent) {
	sub := &streamSub{patterns: patterns, ch: make(chan streamEvent, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}

	var replay []streamEvent
	if lastID > 0 {
		for _, evt := range h.backlog {
			if evt.ID > lastID && sub.wants(evt.Topic) {
				replay = append(replay, evt)
			}
		}
	}
	return sub, replay
}

func (h *eventHub) unsubscribe(sub *streamSub) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

func (s *streamSub) wants(topic string) bool {
	if len(s.patterns) == 0 {
		return true
	}
	for _, p := range s.patterns {
		if matchTopic(p, topic) {
			return true
		}
	}
	return false
}

// matchTopic matches a dot-separated topic against a NATS-style pattern:
// "*" matches one segment and a trailing ">" matches one or more.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleEventStream handles GET /v1/events/stream.
// The optional topics parameter is a comma-separated list of patterns.
func (s *CatalogServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var patterns []string
	for _, p := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}

	sub, replay := s.hub.subscribe(patterns, lastID)
	defer s.hub.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, evt := range replay {
		writeStreamEvent(w, evt)
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-sub.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}

// broadcastEvent hands a published event to the stream hub.
func (s *CatalogServer) broadcastEvent(topic string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event for stream", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(topic, data)
}
