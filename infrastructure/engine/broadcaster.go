package engine

import (
	"sync"
	"sync/atomic"

	"vidflow/domain/graph"
)

// listenerBuffer holds about ten seconds of 20ms blocks.
const listenerBuffer = 512

// broadcaster fans rendered blocks out to any number of listeners.
// Slow listeners lose blocks rather than stalling the render loop.
type broadcaster struct {
	mu        sync.RWMutex
	listeners map[chan graph.Block]struct{}
	dropped   atomic.Int64
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[chan graph.Block]struct{})}
}

func (b *broadcaster) subscribe() (<-chan graph.Block, func()) {
	ch := make(chan graph.Block, listenerBuffer)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.listeners[ch]; ok {
			delete(b.listeners, ch)
			close(ch)
		}
	}
}

func (b *broadcaster) listenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *broadcaster) publish(block graph.Block) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.listeners) == 0 {
		return
	}
	copied := copyBlock(block)
	for ch := range b.listeners {
		select {
		case ch <- copied:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		delete(b.listeners, ch)
		close(ch)
	}
}

func copyBlock(block graph.Block) graph.Block {
	out := make(graph.Block, len(block))
	for c := range block {
		out[c] = append([]float32(nil), block[c]...)
	}
	return out
}
