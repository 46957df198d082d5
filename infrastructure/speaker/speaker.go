// Package speaker plays the engine's output on the local sound device.
package speaker

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when the binary was built without device output.
var ErrUnavailable = errors.New("speaker output not available in this build (rebuild with -tags speaker)")

// bufferLatency bounds how much audio may queue ahead of the device.
const bufferLatency = 200 * time.Millisecond

func queueLimit(sampleRate, channels int) int {
	return int(int64(sampleRate)*int64(bufferLatency)/int64(time.Second)) * channels
}
