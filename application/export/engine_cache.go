package export

import (
	"context"
	"io"
	"sync"

	"vidflow/domain/export"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// EngineCache loads the transcoding engine once and shares it. Callers that
// arrive while a load is in flight wait for that same load.
type EngineCache struct {
	loader export.TranscoderLoader
	group  singleflight.Group
	mu     sync.Mutex
	engine export.Transcoder
	log    *logrus.Entry
}

// NewEngineCache creates an empty cache around loader
func NewEngineCache(loader export.TranscoderLoader) *EngineCache {
	return &EngineCache{
		loader: loader,
		log:    logrus.WithField("component", "export"),
	}
}

// Acquire returns the cached engine, loading it on first use. A failed load
// is not cached, so the next call retries.
func (c *EngineCache) Acquire(ctx context.Context) (export.Transcoder, error) {
	if eng := c.cached(); eng != nil {
		return eng, nil
	}

	// The load outlives any single caller's cancellation since others may share it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("transcoder", func() (any, error) {
		if eng := c.cached(); eng != nil {
			return eng, nil
		}
		c.log.Info("loading transcoding engine")
		eng, err := c.loader.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.engine = eng
		c.mu.Unlock()
		return eng, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(export.Transcoder), nil
	}
}

// Loaded reports whether the engine is cached.
func (c *EngineCache) Loaded() bool {
	return c.cached() != nil
}

func (c *EngineCache) cached() export.Transcoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// Close releases the cached engine's working storage.
func (c *EngineCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if closer, ok := c.engine.(io.Closer); ok {
		c.engine = nil
		return closer.Close()
	}
	c.engine = nil
	return nil
}
