package inspect

import (
	"sync"

	"github.com/vango-dev/bindery/pkg/binding"
)

// hub fans frames out to stream subscribers. Slow subscribers miss frames
// rather than stall the others.
type hub struct {
	mu     sync.Mutex
	subs   map[chan binding.FrameStats]struct{}
	buffer int
	closed bool
}

func newHub(buffer int) *hub {
	return &hub{
		subs:   make(map[chan binding.FrameStats]struct{}),
		buffer: buffer,
	}
}

func (h *hub) subscribe() chan binding.FrameStats {
	ch := make(chan binding.FrameStats, h.buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(ch chan binding.FrameStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) broadcast(stats binding.FrameStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- stats:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
