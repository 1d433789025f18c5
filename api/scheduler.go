/*
scheduler.go - Automated period-close scheduler

PURPOSE:
  Periodically checks whether the most recently ended statement period
  has titles left to close and closes them, so statements appear without
  an operator driving POST /api/periods/close by hand.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Detects titles whose lead contract has no statement for the period
  - Titles with no ownership roster are not yet live and are ignored
  - Records every close run for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPeriodCloseScheduler(store, runner, periods, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ClosePeriod endpoint (manual close, same run records)
  - statement/runner.go: The close itself
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/statement"
)

// PeriodCloseScheduler closes ended statement periods automatically.
type PeriodCloseScheduler struct {
	Store         royalty.TxStore
	Runner        *statement.Runner
	Periods       royalty.PeriodConfig
	CheckInterval time.Duration
	Enabled       bool
	Logger        zerolog.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodCloseScheduler creates a new scheduler.
func NewPeriodCloseScheduler(store royalty.TxStore, runner *statement.Runner, periods royalty.PeriodConfig, logger zerolog.Logger) *PeriodCloseScheduler {
	return &PeriodCloseScheduler{
		Store:         store,
		Runner:        runner,
		Periods:       periods,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        logger,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *PeriodCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info().Msg("close scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	s.Logger.Info().Dur("check_interval", s.CheckInterval).Msg("close scheduler started")
}

// Stop stops the scheduler.
func (s *PeriodCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info().Msg("close scheduler stopped")
	}
}

func (s *PeriodCloseScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.checkAndClose()

	for {
		select {
		case <-s.ticker.C:
			s.checkAndClose()
		case <-s.stop:
			return
		}
	}
}

func (s *PeriodCloseScheduler) checkAndClose() {
	ctx := context.Background()
	now := time.Now().UTC()
	period := s.Periods.Previous(now)

	pending, err := s.pendingTitles(ctx, period)
	if err != nil {
		s.Logger.Error().Err(err).Str("period", period.Label()).Msg("close scheduler check failed")
		return
	}
	if len(pending) == 0 {
		s.Logger.Debug().Str("period", period.Label()).Msg("no titles pending close")
		return
	}

	s.Logger.Info().
		Str("period", period.Label()).
		Int("pending", len(pending)).
		Msg("close scheduler starting run")

	if _, _, err := closeAndRecord(ctx, s.Store, s.Runner, period, royalty.TriggerScheduler, s.Logger); err != nil {
		s.Logger.Error().Err(err).Str("period", period.Label()).Msg("scheduled close failed")
	}
}

// pendingTitles returns the titles whose lead contract has no statement
// for the period yet. Titles without a roster are skipped: they are not
// configured for royalties and a close would only fail them.
func (s *PeriodCloseScheduler) pendingTitles(ctx context.Context, period royalty.Period) ([]royalty.TitleID, error) {
	titles, err := s.Store.ListTitles(ctx)
	if err != nil {
		return nil, err
	}

	var pending []royalty.TitleID
	for _, title := range titles {
		roster, err := s.Store.OwnershipFor(ctx, title.ID)
		if err != nil {
			return nil, err
		}
		if len(roster) == 0 {
			continue
		}

		contract, err := s.Store.ContractFor(ctx, roster[0].AuthorID, title.ID)
		if err != nil {
			// Roster without a matching contract: let the close surface it
			// as a per-title failure in the run record.
			pending = append(pending, title.ID)
			continue
		}
		done, err := s.Store.StatementExists(ctx, contract.ID, period.Start)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, title.ID)
		}
	}
	return pending, nil
}

// RunNow triggers an immediate check (for testing/admin).
func (s *PeriodCloseScheduler) RunNow() {
	s.checkAndClose()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (s *PeriodCloseScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}

// closeAndRecord wraps a catalog close in a run record: saved as running
// before the close, updated in place to completed or failed after. Manual
// closes and scheduled closes produce identical records, differing only
// in the trigger.
func closeAndRecord(ctx context.Context, store royalty.TxStore, runner *statement.Runner, period royalty.Period, trigger string, logger zerolog.Logger) (*statement.BatchResult, royalty.StatementRun, error) {
	started := time.Now().UTC()
	run := royalty.StatementRun{
		ID:          fmt.Sprintf("run-%d", started.UnixNano()),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		PeriodLabel: period.Label(),
		Trigger:     trigger,
		Status:      royalty.RunRunning,
		StartedAt:   started,
	}
	if err := store.PutRun(ctx, run); err != nil {
		return nil, run, fmt.Errorf("failed to save run record: %w", err)
	}

	batch, err := runner.CloseAll(ctx, period)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = royalty.RunFailed
		run.Error = err.Error()
		store.PutRun(ctx, run)
		return nil, run, err
	}

	for _, cr := range batch.Closed {
		if cr.Skipped {
			run.TitlesSkipped++
		} else {
			run.TitlesClosed++
		}
	}
	run.TitlesFailed = len(batch.Failures)
	run.Status = royalty.RunCompleted
	if err := store.PutRun(ctx, run); err != nil {
		return batch, run, fmt.Errorf("failed to update run record: %w", err)
	}

	logger.Info().
		Str("run_id", run.ID).
		Str("period", run.PeriodLabel).
		Str("trigger", trigger).
		Int("closed", run.TitlesClosed).
		Int("skipped", run.TitlesSkipped).
		Int("failed", run.TitlesFailed).
		Msg("period close run finished")
	return batch, run, nil
}
