package push

import (
	"sync"

	"github.com/clickgame/backend/internal/telemetry"
)

// broadcastCapacity bounds every subscriber's mailbox: a
// lossy multi-producer/multi-subscriber queue that never blocks the
// producer on a slow subscriber.
const broadcastCapacity = 100

// Hub is the process-wide broadcast channel fanning top-N snapshots out to
// every connected push-gateway connection. Subscribers that fall behind
// drop their oldest buffered message rather than stall the broadcaster.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan []byte]struct{}
	metrics *telemetry.Metrics
}

func NewHub(metrics *telemetry.Metrics) *Hub {
	return &Hub{subs: make(map[chan []byte]struct{}), metrics: metrics}
}

// Subscribe registers a new mailbox and returns it along with an
// unsubscribe function the caller must invoke on disconnect.
func (h *Hub) Subscribe() (ch chan []byte, unsubscribe func()) {
	ch = make(chan []byte, broadcastCapacity)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// Publish fans payload out to every subscriber. A full mailbox drops its
// oldest queued message to make room rather than blocking this call —
// broadcast frames are self-sufficient snapshots, so a dropped one
// self-heals on the next tick.
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- payload:
			default:
			}
			if h.metrics != nil {
				h.metrics.BroadcastDropped.Inc()
			}
		}
	}
}

// SubscriberCount reports the number of connected mailboxes, for metrics.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
