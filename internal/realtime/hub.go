package realtime

import (
	"context"
	"sync"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
)

// Hub is an in-process event bus. Dashboards served by this process
// subscribe per event and must call the returned cancel func on teardown.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan models.CheckInEvent
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[int]chan models.CheckInEvent),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(eventID string) (<-chan models.CheckInEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan models.CheckInEvent, h.buffer)
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[int]chan models.CheckInEvent)
	}
	h.subs[eventID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[eventID], id)
			if len(h.subs[eventID]) == 0 {
				delete(h.subs, eventID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// PublishCheckIn never blocks: a subscriber whose buffer is full misses the
// event and is expected to reload the registration list.
func (h *Hub) PublishCheckIn(_ context.Context, evt models.CheckInEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[evt.EventID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}
