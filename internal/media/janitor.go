package media

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Remover deletes stored objects by location.
type Remover interface {
	DeleteMany(ctx context.Context, locations []string) error
}

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Janitor asynchronously deletes media that is no longer referenced, such as
// a replaced avatar or thumbnail.
type Janitor struct {
	remover Remover
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan []string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewJanitor constructs a background worker pool that removes stale media.
func NewJanitor(remover Remover, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		remover: remover,
		timeout: cfg.Timeout,
		logger:  logger,
		jobs:    make(chan []string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules the locations for deletion. Empty locations are ignored.
func (j *Janitor) Enqueue(ctx context.Context, locations ...string) error {
	var batch []string
	for _, location := range locations {
		if location != "" {
			batch = append(batch, location)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return errJanitorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.ctx.Done():
		return errJanitorClosed
	case j.jobs <- batch:
		return nil
	}
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.cancel()
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	// Queued batches are drained after Shutdown; the channel is closed then.
	for batch := range j.jobs {
		j.handle(batch)
	}
}

func (j *Janitor) handle(batch []string) {
	if j.remover == nil {
		j.logger.Error("media janitor missing remover", "locations", batch)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.remover.DeleteMany(ctx, batch); err != nil {
		j.logger.Error("delete stale media", "locations", batch, "error", err)
		return
	}
	j.logger.Debug("deleted stale media", "count", len(batch))
}
