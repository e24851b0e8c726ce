// Package progress fans download progress out to any number of listeners
// keyed by a caller-chosen progress id.
package progress

import (
	"sync"
	"time"
)

// Status values carried by Event.
const (
	StatusStarted     = "started"
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
	StatusError       = "error"
)

const (
	subscriberBuffer = 16
	defaultFinalTTL  = 5 * time.Minute
	maxFinals        = 1024
)

// Event is one progress update.
type Event struct {
	Status          string  `json:"status"`
	Percent         float64 `json:"percent"`
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	Message         string  `json:"message,omitempty"`
	Filename        string  `json:"filename,omitempty"`
	Done            bool    `json:"done"`
}

type finalEvent struct {
	event Event
	at    time.Time
}

// Hub routes events to subscribers. The last event of a finished id is kept
// for a while so late subscribers still see the outcome.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]map[chan Event]struct{}
	finals   map[string]finalEvent
	finalTTL time.Duration
	now      func() time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[chan Event]struct{}),
		finals:   make(map[string]finalEvent),
		finalTTL: defaultFinalTTL,
		now:      time.Now,
	}
}

// Subscribe registers a listener for id. The channel is closed after the
// final event or when cancel is called. cancel is safe to call more than once.
func (h *Hub) Subscribe(id string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.expireLocked()
	if f, ok := h.finals[id]; ok {
		h.mu.Unlock()
		ch <- f.event
		close(ch)
		return ch, func() {}
	}
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan Event]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set := h.subs[id]
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		close(ch)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of id without blocking. Slow
// subscribers miss intermediate updates; a Done event closes them all.
func (h *Hub) Publish(id string, ev Event) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[id] {
		select {
		case ch <- ev:
		default:
			if ev.Done {
				// 终态事件必须送达: 丢弃一条旧消息再投递
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- ev:
				default:
				}
			}
		}
	}

	if ev.Done {
		for ch := range h.subs[id] {
			close(ch)
		}
		delete(h.subs, id)
		h.expireLocked()
		if _, ok := h.finals[id]; !ok && len(h.finals) >= maxFinals {
			h.evictOldestLocked()
		}
		h.finals[id] = finalEvent{event: ev, at: h.now()}
	}
}

// Subscribers returns the number of live listeners for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

func (h *Hub) expireLocked() {
	cutoff := h.now().Add(-h.finalTTL)
	for id, f := range h.finals {
		if f.at.Before(cutoff) {
			delete(h.finals, id)
		}
	}
}

func (h *Hub) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, f := range h.finals {
		if oldestID == "" || f.at.Before(oldestAt) {
			oldestID, oldestAt = id, f.at
		}
	}
	delete(h.finals, oldestID)
}
