package speaker

import (
	"encoding/binary"
	"math"
	"sync"

	"vidflow/domain/graph"
)

// queue buffers interleaved float32 samples between the engine and the
// device callback. When full it drops the oldest samples.
type queue struct {
	mu       sync.Mutex
	channels int
	limit    int
	samples  []float32
	underrun int64
}

func newQueue(channels, limit int) *queue {
	return &queue{channels: channels, limit: limit}
}

func (q *queue) push(b graph.Block) {
	frames := b.Frames()
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < frames; i++ {
		for c := 0; c < q.channels; c++ {
			src := c
			if src >= len(b) {
				src = 0
			}
			q.samples = append(q.samples, b[src][i])
		}
	}
	if over := len(q.samples) - q.limit; over > 0 {
		// keep whole frames
		over += (q.channels - over%q.channels) % q.channels
		q.samples = append(q.samples[:0], q.samples[over:]...)
	}
}

// Read fills p with little-endian float32 samples, padding with silence.
func (q *queue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(p) / 4
	have := min(n, len(q.samples))
	for i := 0; i < have; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(q.samples[i]))
	}
	for i := have * 4; i < n*4; i++ {
		p[i] = 0
	}
	if have < n {
		q.underrun++
	}
	q.samples = append(q.samples[:0], q.samples[have:]...)
	return n * 4, nil
}

func (q *queue) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}
