// Package scheduler refreshes a watch list of accounts on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"xrpl-activity-lab/internal/aggregator"
	"xrpl-activity-lab/internal/observability"
)

// Refresher is the part of the session registry the scheduler drives.
type Refresher interface {
	MergeNextPage(ctx context.Context, account string) (*aggregator.MergeResult, error)
	RefreshPerformance(ctx context.Context, account string) error
}

// Options configures a Scheduler.
type Options struct {
	Spec        string   // cron spec with a seconds field
	Accounts    []string // watch list
	PagesPerRun int      // pages merged per account and run; default 1
	Logger      *log.Logger
}

// Scheduler manages the refresh cron task.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	accounts  []string
	pages     int
	logger    *log.Logger
	ctx       context.Context

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler and registers the refresh task.
func New(ctx context.Context, refresher Refresher, opts Options) (*Scheduler, error) {
	if opts.PagesPerRun <= 0 {
		opts.PagesPerRun = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		refresher: refresher,
		accounts:  append([]string(nil), opts.Accounts...),
		pages:     opts.PagesPerRun,
		logger:    opts.Logger,
		ctx:       ctx,
	}
	if _, err := s.cron.AddFunc(opts.Spec, s.RunNow); err != nil {
		return nil, fmt.Errorf("register refresh task %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Printf("scheduler started for %d accounts", len(s.accounts))
}

// Stop stops the scheduler and waits for a running refresh.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Println("scheduler stopped")
}

// RunNow refreshes every watched account once. A run that would overlap the
// previous one is skipped.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("refresh already running, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for _, account := range s.accounts {
		if s.ctx.Err() != nil {
			return
		}
		err := s.refresh(account)
		observability.RecordScheduledRefresh(err)
		if err != nil {
			s.logger.Printf("refresh %s: %v", account, err)
		}
	}
}

func (s *Scheduler) refresh(account string) error {
	var errs []error
	for i := 0; i < s.pages; i++ {
		res, err := s.refresher.MergeNextPage(s.ctx, account)
		if err != nil {
			errs = append(errs, fmt.Errorf("merge page: %w", err))
			break
		}
		if res.Exhausted {
			break
		}
	}
	if err := s.refresher.RefreshPerformance(s.ctx, account); err != nil && !errors.Is(err, aggregator.ErrNoStatsSource) {
		errs = append(errs, fmt.Errorf("performance: %w", err))
	}
	return errors.Join(errs...)
}
