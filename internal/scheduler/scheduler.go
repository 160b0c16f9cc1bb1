// Package scheduler runs the periodic jobs of the procurement backend.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// AuctionAdvancer moves auctions along their time window.
// service.AuctionService implements it.
type AuctionAdvancer interface {
	AdvanceSchedule(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	auctions AuctionAdvancer
	timeout  time.Duration
	now      func() time.Time
}

// New registers the auction job on spec (standard cron or @every form).
// Overlapping runs are skipped rather than queued.
func New(spec string, auctions AuctionAdvancer) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		auctions: auctions,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.AdvanceAuctions(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid auction schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Scheduler started with %d job(s)", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for a running job to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// AdvanceAuctions is one run of the auction job; it returns the number of
// auctions that changed status.
func (s *Scheduler) AdvanceAuctions(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.auctions.AdvanceSchedule(ctx, s.now())
	if err != nil {
		log.Printf("auction scheduler: %v", err)
	}
	if n > 0 {
		log.Printf("auction scheduler: %d auction(s) changed status", n)
	}
	return n
}
