package speaker

import (
	"encoding/binary"
	"math"
	"testing"

	"vidflow/domain/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloats(t *testing.T, q *queue, n int) []float32 {
	t.Helper()
	buf := make([]byte, n*4)
	got, err := q.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), got)
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func TestQueue_InterleavesChannels(t *testing.T) {
	q := newQueue(2, 100)
	q.push(graph.Block{{0.1, 0.2}, {-0.1, -0.2}})

	assert.Equal(t, []float32{0.1, -0.1, 0.2, -0.2}, readFloats(t, q, 4))
	assert.Zero(t, q.buffered())
}

func TestQueue_MonoSourceFillsBothChannels(t *testing.T) {
	q := newQueue(2, 100)
	q.push(graph.Block{{0.5}})

	assert.Equal(t, []float32{0.5, 0.5}, readFloats(t, q, 2))
}

func TestQueue_UnderrunPadsSilence(t *testing.T) {
	q := newQueue(1, 100)
	q.push(graph.Block{{0.25}})

	assert.Equal(t, []float32{0.25, 0, 0}, readFloats(t, q, 3))
	assert.EqualValues(t, 1, q.underrun)
}

func TestQueue_DropsOldestWholeFrames(t *testing.T) {
	q := newQueue(2, 4)
	q.push(graph.Block{{1, 2, 3}, {-1, -2, -3}})

	assert.Equal(t, 4, q.buffered())
	assert.Equal(t, []float32{2, -2, 3, -3}, readFloats(t, q, 4))
}

func TestQueueLimit(t *testing.T) {
	assert.Equal(t, 9600*2, queueLimit(48000, 2))
}
