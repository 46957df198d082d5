//go:build speaker

package speaker

import (
	"fmt"
	"sync"

	"vidflow/domain/graph"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Output streams a tap to the default sound device.
type Output struct {
	ctx    *oto.Context
	player *oto.Player
	queue  *queue
	stop   func()
	done   chan struct{}
	once   sync.Once
	log    *logrus.Entry
}

// Open starts playing tap on the default device. Only one Output may be
// opened per process.
func Open(tap graph.Tap) (*Output, error) {
	rate, channels := tap.SampleRate(), min(tap.Channels(), 2)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open sound device: %w", err)
	}
	<-ready

	out := &Output{
		ctx:   ctx,
		queue: newQueue(channels, queueLimit(rate, channels)),
		done:  make(chan struct{}),
		log:   logrus.WithField("component", "speaker"),
	}
	out.player = ctx.NewPlayer(out.queue)

	blocks, unsubscribe := tap.Subscribe()
	out.stop = unsubscribe
	go func() {
		defer close(out.done)
		for b := range blocks {
			out.queue.push(b)
		}
	}()

	out.player.Play()
	out.log.WithFields(logrus.Fields{"sample_rate": rate, "channels": channels}).Info("speaker output started")
	return out, nil
}

// Close stops playback and releases the device player.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		o.stop()
		<-o.done
		err = o.player.Close()
		o.log.WithField("underruns", o.queue.underrun).Debug("speaker output closed")
	})
	return err
}
