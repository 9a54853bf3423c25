package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lix74/menubot/core/analytics"
	"github.com/lix74/menubot/core/graph"
	"github.com/lix74/menubot/core/logger"
	"github.com/lix74/menubot/core/users"
)

// Store persists the three durable documents. Sessions are volatile and
// never stored. Missing documents are created with defaults on first load.
type Store interface {
	LoadGraph() (graph.Snapshot, error)
	SaveGraph(graph.Snapshot) error
	LoadUsers() (users.Document, error)
	SaveUsers(users.Document) error
	LoadAnalytics() (analytics.Document, error)
	SaveAnalytics(analytics.Document) error
	Close() error
}

// Sources supply fresh snapshots at flush time, so rapid mutations between
// flushes collapse into one write of the latest state.
type Sources struct {
	Graph     func() graph.Snapshot
	Users     func() users.Document
	Analytics func() analytics.Document
}

const (
	storeGraph     = "graph"
	storeUsers     = "users"
	storeAnalytics = "analytics"
)

// DefaultDebounce is the write-coalescing window.
const DefaultDebounce = 5 * time.Second

// Coalescer batches rapid successive mutations into one write per store
// within a debounce window. In-memory state stays authoritative between
// writes; a crash loses at most one window. Close flushes what is dirty.
type Coalescer struct {
	store    Store
	src      Sources
	debounce time.Duration

	mu    sync.Mutex
	dirty map[string]bool

	wake chan struct{}
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewCoalescer starts the background flusher.
func NewCoalescer(store Store, src Sources, debounce time.Duration) *Coalescer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	c := &Coalescer{
		store:    store,
		src:      src,
		debounce: debounce,
		dirty:    make(map[string]bool, 3),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// MarkGraph schedules a graph write.
func (c *Coalescer) MarkGraph() { c.mark(storeGraph) }

// MarkUsers schedules a users write.
func (c *Coalescer) MarkUsers() { c.mark(storeUsers) }

// MarkAnalytics schedules an analytics write.
func (c *Coalescer) MarkAnalytics() { c.mark(storeAnalytics) }

func (c *Coalescer) mark(name string) {
	c.mu.Lock()
	c.dirty[name] = true
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coalescer) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case <-c.wake:
		}
		timer := time.NewTimer(c.debounce)
		select {
		case <-c.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
		c.Flush()
	}
}

// Flush writes every dirty store immediately. Dirty flags are cleared while
// collecting, so a mark arriving during a save is never clobbered and is
// picked up by the next flush. Failures are logged and re-mark the store;
// they never block callers.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	pending := make([]string, 0, len(c.dirty))
	for name, d := range c.dirty {
		if d {
			pending = append(pending, name)
			c.dirty[name] = false
		}
	}
	c.mu.Unlock()

	for _, name := range pending {
		start := time.Now()
		var err error
		switch name {
		case storeGraph:
			err = c.store.SaveGraph(c.src.Graph())
		case storeUsers:
			err = c.store.SaveUsers(c.src.Users())
		case storeAnalytics:
			err = c.store.SaveAnalytics(c.src.Analytics())
		}
		if err != nil {
			logger.Error(context.Background(), "store", "store.save_failed",
				slog.String("store", name),
				slog.String("status", "fail"),
				slog.Duration("duration", logger.Took(start)),
				slog.String("err", err.Error()),
			)
			c.mark(name)
			continue
		}
		logger.Debug(context.Background(), "store", "store.saved",
			slog.String("store", name),
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}

// Close stops the flusher and writes any remaining dirty stores.
func (c *Coalescer) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
		c.Flush()
	})
}
