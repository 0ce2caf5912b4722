/*
scheduler.go - Automated ingest scheduler

PURPOSE:
  Periodically drains the inbound notification feed and reconciles
  each new body. Each reconcile invocation is independently
  schedulable; the only serialization point is the ledger's per-payer
  write boundary, so the cycle fans out with bounded concurrency.

DESIGN:
  - Background goroutine with configurable tick interval
  - RunOnce is also exposed for the manual /api/ingest trigger
  - A failed body aborts the cycle (storage failure is fatal for the
    cycle's writes); unmatched and duplicate are ordinary outcomes and
    just counted

SEE ALSO:
  - handlers.go: IngestNow endpoint (manual trigger)
  - feed/feed.go: Source implementations
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerline/reconcile-engine/feed"
	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// IngestStats summarizes one ingest cycle.
type IngestStats struct {
	Fetched    int `json:"fetched"`
	Matched    int `json:"matched"`
	Unmatched  int `json:"unmatched"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// IngestScheduler drains a feed.Source on a fixed interval.
type IngestScheduler struct {
	Driver      *recon.Driver
	Source      feed.Source
	Trusted     []string
	Interval    time.Duration
	Concurrency int
	Log         *logrus.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewIngestScheduler creates a scheduler with sane defaults.
func NewIngestScheduler(driver *recon.Driver, source feed.Source, log *logrus.Logger) *IngestScheduler {
	if log == nil {
		log = logrus.New()
	}
	return &IngestScheduler{
		Driver:      driver,
		Source:      source,
		Trusted:     feed.DefaultTrustedSenders,
		Interval:    5 * time.Minute,
		Concurrency: 4,
		Log:         log,
		stop:        make(chan struct{}),
	}
}

// Start begins the background ingest loop.
func (s *IngestScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)
	go s.run()

	s.Log.WithField("interval", s.Interval).Info("ingest scheduler started")
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *IngestScheduler) Stop() {
	s.mu.Lock()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	s.Log.Info("ingest scheduler stopped")
}

func (s *IngestScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case <-s.ticker.C:
			stats, err := s.RunOnce(context.Background())
			if err != nil {
				s.Log.WithError(err).Error("ingest cycle failed")
				continue
			}
			s.Log.WithFields(logrus.Fields{
				"fetched":    stats.Fetched,
				"matched":    stats.Matched,
				"unmatched":  stats.Unmatched,
				"duplicates": stats.Duplicates,
			}).Info("ingest cycle complete")
		}
	}
}

// RunOnce fetches all new messages and reconciles each with bounded
// concurrency.
func (s *IngestScheduler) RunOnce(ctx context.Context) (IngestStats, error) {
	msgs, err := s.Source.Fetch(ctx)
	if err != nil {
		return IngestStats{}, err
	}
	msgs = feed.TrustFilter(msgs, s.Trusted)

	var (
		mu    sync.Mutex
		stats = IngestStats{Fetched: len(msgs)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())

	for _, m := range msgs {
		body := m.Body
		g.Go(func() error {
			outcome, err := s.Driver.Reconcile(ctx, body)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch outcome.Status {
			case recon.OutcomeUnmatched:
				stats.Unmatched++
			case recon.OutcomeMatched:
				stats.Matched++
				switch outcome.Result.Status {
				case recon.StatusDuplicate:
					stats.Duplicates++
				case recon.StatusRejected:
					stats.Rejected++
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *IngestScheduler) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return 1
}
