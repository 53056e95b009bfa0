// Package poller drives the ingestion pipeline: panel fetch, normalization,
// dedup and merge into the feed store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danhigham/otpfeed/internal/domain"
	"github.com/danhigham/otpfeed/internal/normalize"
	"github.com/danhigham/otpfeed/internal/panel"
	"github.com/danhigham/otpfeed/internal/state"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBackoff  = 30 * time.Second
)

// ErrCyclePanic wraps a panic recovered from a cycle. Only these failures
// delay the next cycle by the backoff; panel failures keep the interval.
var ErrCyclePanic = errors.New("cycle panic")

// Options configure a Poller.
type Options struct {
	Interval   time.Duration
	Backoff    time.Duration
	Normalizer *normalize.Normalizer
	Logger     *zap.Logger
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	Shape    normalize.ShapeKind
	Fetched  int
	Inserted int
	Skipped  int
	Duration time.Duration
}

// Poller is the single active worker. Cycles never overlap: a forced check
// waits for a scheduled one to finish and vice versa.
type Poller struct {
	client     panel.Client
	store      *state.Store
	normalizer *normalize.Normalizer
	interval   time.Duration
	backoff    time.Duration
	logger     *zap.Logger

	mu sync.Mutex
}

func New(client panel.Client, store *state.Store, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		client:     client,
		store:      store,
		normalizer: opts.Normalizer,
		interval:   opts.Interval,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
	}
}

// Cycle runs one fetch-normalize-merge pass. Errors are recorded in the
// store before being returned; the feed is untouched on failure.
func (p *Poller) Cycle(ctx context.Context) (res CycleResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
			p.logger.Error("poll cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		res.Duration = time.Since(start)
		p.finish(res, err)
	}()

	if !p.client.State().LoggedIn {
		if err := p.client.Login(ctx); err != nil {
			return res, fmt.Errorf("login: %w", err)
		}
	}

	raw, err := p.client.FetchRaw(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}

	result, err := p.normalizer.Normalize(raw)
	if err != nil {
		return res, fmt.Errorf("normalize: %w", err)
	}
	res.Shape = result.Shape.Kind
	res.Fetched = len(result.Shape.Items)
	res.Skipped = len(result.Failures)

	switch result.Shape.Kind {
	case normalize.ShapeWrapped:
		p.store.Debugf("Found %d items in '%s'", res.Fetched, result.Shape.Key)
	case normalize.ShapeList:
		p.store.Debugf("Direct array with %d items", res.Fetched)
	default:
		p.store.Debugf("Unexpected response shape, keys: %v", result.Shape.Keys)
	}
	for _, f := range result.Failures {
		p.store.Debugf("Error formatting message: %v", f)
	}

	res.Inserted = p.store.MergeNew(result.Messages)
	return res, nil
}

// finish records the cycle outcome. Panel failures were already reported by
// the client through the store's event handler.
func (p *Poller) finish(res CycleResult, err error) {
	p.store.RecordCycle(err != nil)
	if err == nil {
		p.logger.Debug("poll cycle complete",
			zap.Stringer("shape", res.Shape),
			zap.Int("fetched", res.Fetched),
			zap.Int("inserted", res.Inserted),
			zap.Int("skipped", res.Skipped),
			zap.Duration("took", res.Duration),
		)
		return
	}
	var perr *panel.Error
	if !errors.As(err, &perr) {
		p.store.OnError(err)
		p.store.Debugf("Cycle error: %v", err)
	}
	p.logger.Warn("poll cycle failed", zap.Error(err), zap.Duration("took", res.Duration))
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
// Login, fetch and decode failures wait for the next regular cycle; a
// recovered panic waits for the backoff.
func (p *Poller) Run(ctx context.Context) {
	p.store.SetRunning(true)
	defer p.store.SetRunning(false)
	p.store.Debugf("Scraper started")
	p.logger.Info("poller started", zap.Duration("interval", p.interval), zap.Duration("backoff", p.backoff))

	for {
		wait := p.interval
		if _, err := p.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("poller stopped")
				return
			}
			if errors.Is(err, ErrCyclePanic) {
				wait = p.backoff
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopped")
			return
		case <-timer.C:
		}
	}
}

// ForceCheck runs one cycle out of band and returns the resulting feed size.
func (p *Poller) ForceCheck(ctx context.Context) int {
	p.store.Debugf("Manual refresh requested")
	if _, err := p.Cycle(ctx); err != nil {
		p.logger.Info("forced check failed", zap.Error(err))
	}
	return p.store.Len()
}

// ClearAll empties the feed and forgets every seen id.
func (p *Poller) ClearAll() {
	p.store.Clear()
}

// Snapshot returns the current feed.
func (p *Poller) Snapshot() domain.Snapshot {
	return p.store.Snapshot()
}

// Diagnostics returns the troubleshooting view.
func (p *Poller) Diagnostics() domain.Diagnostics {
	return p.store.Diagnostics()
}
