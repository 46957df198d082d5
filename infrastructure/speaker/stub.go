//go:build !speaker

package speaker

import "vidflow/domain/graph"

// Output is a no-op in builds without device support.
type Output struct{}

// Open always fails with ErrUnavailable.
func Open(tap graph.Tap) (*Output, error) {
	return nil, ErrUnavailable
}

// Close does nothing.
func (o *Output) Close() error { return nil }
