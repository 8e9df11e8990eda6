// Package scheduler refreshes market-cap snapshots on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funscreener/internal/config"
	"github.com/sells-group/funscreener/internal/marketcap"
)

// DefaultSpec fires at midnight UTC. Fields: sec min hour dom month dow.
const DefaultSpec = "0 0 0 * * *"

// Snapshot is the outcome of one watch entry in one tick.
type Snapshot struct {
	Country  string
	Category string
	Count    int
	Leader   string
	Err      error
}

// Scheduler runs GetLatestMarketCap for every watch entry on each tick.
type Scheduler struct {
	svc   marketcap.Screener
	spec  string
	watch []config.WatchEntry
	cron  *cron.Cron
	log   *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	inflight sync.WaitGroup
}

// New validates the cron spec and builds a Scheduler in UTC.
func New(svc marketcap.Screener, cfg config.ScheduleConfig) (*Scheduler, error) {
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.Parse(spec); err != nil {
		return nil, eris.Wrapf(err, "scheduler: parse spec %q", spec)
	}

	s := &Scheduler{
		svc:   svc,
		spec:  spec,
		watch: cfg.Watch,
		cron:  cron.NewWithLocation(time.UTC),
		log:   zap.L().With(zap.String("component", "scheduler")),
		ctx:   context.Background(),
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, eris.Wrap(err, "scheduler: add job")
	}
	return s, nil
}

// Start begins firing. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.log.Info("snapshot scheduler started",
		zap.String("spec", s.spec),
		zap.Int("watch_entries", len(s.watch)),
	)
}

// Stop halts future ticks and waits for a tick already running to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cron.Stop()
	s.mu.Unlock()

	s.inflight.Wait()
	s.log.Info("snapshot scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunOnce refreshes every watch entry and returns one Snapshot per entry.
// Failures are logged and recorded, never returned.
func (s *Scheduler) RunOnce(ctx context.Context) []Snapshot {
	start := time.Now()
	out := make([]Snapshot, 0, len(s.watch))
	failed := 0

	for _, w := range s.watch {
		if ctx.Err() != nil {
			break
		}
		snap := s.refresh(ctx, w)
		if snap.Err != nil {
			failed++
		}
		out = append(out, snap)
	}

	s.log.Info("snapshot tick complete",
		zap.Int("entries", len(out)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	defer s.inflight.Done()
	s.RunOnce(ctx)
}

func (s *Scheduler) refresh(ctx context.Context, w config.WatchEntry) Snapshot {
	snap := Snapshot{Country: w.Country, Category: w.Category}

	var topN *int
	if w.Top > 0 {
		top := w.Top
		topN = &top
	}

	entries, err := s.svc.GetLatestMarketCap(ctx, w.Country, w.Category, topN)
	if err != nil {
		snap.Err = err
		s.log.Error("snapshot failed",
			zap.String("country", w.Country),
			zap.String("category", w.Category),
			zap.Error(err),
		)
		return snap
	}

	snap.Count = len(entries)
	if len(entries) > 0 {
		snap.Leader = leader(entries)
	}
	s.log.Info("snapshot refreshed",
		zap.String("country", w.Country),
		zap.String("category", w.Category),
		zap.Int("count", snap.Count),
		zap.String("leader", snap.Leader),
	)
	return snap
}

// leader returns the ticker with the largest USD market cap.
func leader(entries []marketcap.Entry) string {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.USDMarketCap > best.USDMarketCap {
			best = e
		}
	}
	return best.TickerSymbol
}
