package figure

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/rule"
)

// NoDataMessage is the placeholder body clients see when a build found
// nothing to plot or failed outright.
const NoDataMessage = "No data found"

// Builder hands out figures from the cache and builds misses in the
// background. Concurrent requests for the same key share one build;
// callers poll the key until the artifact lands.
type Builder struct {
	service  *Service
	cache    *cache.Disk
	renderer Renderer
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewBuilder wires a builder around the figure service.
func NewBuilder(svc *Service, c *cache.Disk, r Renderer, timeout time.Duration) *Builder {
	return &Builder{
		service:  svc,
		cache:    c,
		renderer: r,
		timeout:  timeout,
		inflight: make(map[string]struct{}),
	}
}

// Get returns the cache key for the request and whether the artifact is
// already resident. On a miss the build starts in the background, unless
// one for the same key is already running.
func (b *Builder) Get(req Request) (key string, ready bool) {
	key = req.Key()
	if b.cache.Exists(key) {
		return key, true
	}

	b.mu.Lock()
	if _, running := b.inflight[key]; !running {
		b.inflight[key] = struct{}{}
		go b.build(key, req)
	}
	b.mu.Unlock()
	return key, false
}

// Fetch reads a finished artifact.
func (b *Builder) Fetch(key string) ([]byte, error) {
	return b.cache.Get(key)
}

// build renders the figure and lands it in the cache. Every outcome
// writes something: a failed or empty build leaves the placeholder so
// pollers stop waiting.
func (b *Builder) build(key string, req Request) {
	defer func() {
		b.mu.Lock()
		delete(b.inflight, key)
		b.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	page, err := b.service.BuildPage(ctx, req)
	if err != nil {
		if !errors.Is(err, rule.ErrNoData) {
			log.Printf("Figure build %s failed: %v", key, err)
		}
		b.putPlaceholder(key)
		return
	}

	data, err := b.renderer.Render(page)
	if err != nil {
		log.Printf("Figure render %s failed: %v", key, err)
		b.putPlaceholder(key)
		return
	}
	if err := b.cache.Put(key, data); err != nil {
		log.Printf("Figure cache write %s failed: %v", key, err)
	}
}

func (b *Builder) putPlaceholder(key string) {
	if err := b.cache.Put(key, b.renderer.Placeholder(NoDataMessage)); err != nil {
		log.Printf("Placeholder write %s failed: %v", key, err)
	}
}
