/*
Package statement drives period closes: it feeds ledger snapshots through
the royalty calculation engine and persists the outcome.

PURPOSE:
  The engine is pure; somebody has to own the read-compute-write cycle.
  The Runner is that somebody. Per title it resolves the roster, contracts
  and sales inputs, runs one calculation, and persists every author's
  statement plus every contract's recoupment update in ONE transaction.

INVARIANTS:
  1. ATOMIC PERSISTENCE: statements and recoupment updates for one title
     commit together or not at all; a partial close never exists
  2. IDEMPOTENT: a title whose statements already exist for the period is
     skipped, so re-running a close never double-counts or double-recoups
  3. INDEPENDENT TITLES: one title failing blocks that title only; the
     rest of the batch proceeds

ERROR HANDLING:
  Per-title failures are collected into the batch result, not returned as
  a batch-level error. The batch itself only fails on context cancellation
  or a store-level fault while listing titles.

EXAMPLE:
  runner := statement.NewRunner(store, logger)
  batch, err := runner.CloseAll(ctx, periodConfig.Previous(time.Now()))
  for _, f := range batch.Failures {
      log.Warn().Str("title", string(f.TitleID)).Err(f.Err).Msg("close failed")
  }

SEE ALSO:
  - royalty/engine.go: The pure calculation this drives
  - royalty/store.go: The TxStore boundary closes commit through
*/
package statement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner owns the read-compute-write cycle of a period close.
type Runner struct {
	Store  royalty.TxStore
	Ledger royalty.SalesLedger
	Engine *royalty.CalculationEngine
	Logger zerolog.Logger

	// Concurrency bounds how many titles close in parallel. Calculations
	// are pure and independent, so titles never coordinate.
	Concurrency int
}

// NewRunner wires a runner with the default ledger and engine.
func NewRunner(store royalty.TxStore, logger zerolog.Logger) *Runner {
	return &Runner{
		Store:       store,
		Ledger:      royalty.NewSalesLedger(store),
		Engine:      royalty.NewCalculationEngine(),
		Logger:      logger,
		Concurrency: 4,
	}
}

// CloseResult is one title's close outcome.
type CloseResult struct {
	TitleID royalty.TitleID

	// Skipped is true when the period was already closed for this title.
	Skipped bool

	Result     *royalty.CalculationResult
	Statements []royalty.Statement
}

// TitleFailure names a title whose close failed and why.
type TitleFailure struct {
	TitleID royalty.TitleID
	Err     error
}

// BatchResult aggregates a whole catalog close.
type BatchResult struct {
	Period     royalty.Period
	Closed     []CloseResult
	Failures   []TitleFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// =============================================================================
// BATCH CLOSE
// =============================================================================

// CloseAll closes the period for every title in the catalog. Titles run
// concurrently; each succeeds, skips, or fails on its own.
func (r *Runner) CloseAll(ctx context.Context, period royalty.Period) (*BatchResult, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	titles, err := r.Store.ListTitles(ctx)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Period: period, StartedAt: time.Now().UTC()}

	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, title := range titles {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(id royalty.TitleID) {
			defer wg.Done()
			defer func() { <-sem }()

			result, closeErr := r.CloseTitle(ctx, id, period)

			mu.Lock()
			defer mu.Unlock()
			if closeErr != nil {
				r.Logger.Warn().
					Str("title_id", string(id)).
					Str("period", period.Label()).
					Err(closeErr).
					Msg("title close failed")
				batch.Failures = append(batch.Failures, TitleFailure{TitleID: id, Err: closeErr})
				return
			}
			batch.Closed = append(batch.Closed, *result)
		}(title.ID)
	}
	wg.Wait()

	sort.Slice(batch.Closed, func(i, j int) bool { return batch.Closed[i].TitleID < batch.Closed[j].TitleID })
	sort.Slice(batch.Failures, func(i, j int) bool { return batch.Failures[i].TitleID < batch.Failures[j].TitleID })
	batch.FinishedAt = time.Now().UTC()

	r.Logger.Info().
		Str("period", period.Label()).
		Int("closed", len(batch.Closed)).
		Int("failed", len(batch.Failures)).
		Msg("period close finished")

	return batch, ctx.Err()
}

// =============================================================================
// SINGLE TITLE CLOSE
// =============================================================================

// CloseTitle closes one title's period: snapshot in, calculate, persist
// atomically. Already-closed titles come back with Skipped set.
func (r *Runner) CloseTitle(ctx context.Context, titleID royalty.TitleID, period royalty.Period) (*CloseResult, error) {
	title, err := r.Store.GetTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}
	ownership, err := r.Store.OwnershipFor(ctx, titleID)
	if err != nil {
		return nil, err
	}
	if err := royalty.ValidateOwnership(titleID, ownership); err != nil {
		return nil, err
	}

	contracts, err := r.Store.ContractsForTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	// Idempotency check against the lead contract. The unique statement key
	// inside the transaction catches the concurrent-runner race.
	lead, err := r.Store.ContractFor(ctx, ownership[0].AuthorID, titleID)
	if err != nil {
		return nil, err
	}
	if exists, err := r.Store.StatementExists(ctx, lead.ID, period.Start); err != nil {
		return nil, err
	} else if exists {
		return &CloseResult{TitleID: titleID, Skipped: true}, nil
	}

	sales, err := r.Ledger.PeriodSales(ctx, title, period)
	if err != nil {
		return nil, err
	}

	result, err := r.Engine.Calculate(royalty.CalculationInput{
		TitleID:   titleID,
		Period:    period,
		Sales:     sales,
		Contracts: contracts,
		Ownership: ownership,
	})
	if err != nil {
		return nil, err
	}

	statements := royalty.BuildStatements(result, time.Now().UTC())
	if err := r.persist(ctx, result, statements); err != nil {
		if errors.Is(err, royalty.ErrStatementExists) {
			return &CloseResult{TitleID: titleID, Skipped: true}, nil
		}
		return nil, err
	}

	r.Logger.Info().
		Str("title_id", string(titleID)).
		Str("period", period.Label()).
		Str("total", result.TitleTotalRoyalty.StringFixed()).
		Int("authors", len(result.AuthorSplits)).
		Bool("split", result.IsSplitCalculation).
		Msg("title closed")

	return &CloseResult{TitleID: titleID, Result: result, Statements: statements}, nil
}

// persist writes statements, recoupment updates and the audit record in one
// transaction. Everything lands or nothing does.
func (r *Runner) persist(ctx context.Context, result *royalty.CalculationResult, statements []royalty.Statement) error {
	now := time.Now().UTC()
	return r.Store.WithTx(ctx, func(tx royalty.Store) error {
		for i, st := range statements {
			if err := tx.PutStatement(ctx, st); err != nil {
				return err
			}
			split := result.AuthorSplits[i]
			if split.Recoupment.IsPositive() {
				newTotal := st.NewRecoupedTotal(split.Advance.PreviouslyRecouped)
				if err := tx.UpdateAdvanceRecouped(ctx, st.ContractID, newTotal); err != nil {
					return err
				}
				if err := tx.AppendAudit(ctx, royalty.AuditEntry{
					ID:         uuid.NewString(),
					Timestamp:  now,
					ActorID:    "statement-runner",
					Action:     royalty.AuditAdvanceRecouped,
					TitleID:    result.TitleID,
					AuthorID:   st.AuthorID,
					ContractID: st.ContractID,
					Payload: map[string]any{
						"recoupment":   st.Recoupment.StringFixed(),
						"new_recouped": newTotal.StringFixed(),
						"period":       st.PeriodLabel,
					},
				}); err != nil {
					return err
				}
			}
		}
		return tx.AppendAudit(ctx, auditForResult(result, now))
	})
}

// auditForResult records the calculation verbatim for traceability.
func auditForResult(result *royalty.CalculationResult, now time.Time) royalty.AuditEntry {
	authors := make([]map[string]any, 0, len(result.AuthorSplits))
	for _, split := range result.AuthorSplits {
		authors = append(authors, map[string]any{
			"author_id":   string(split.AuthorID),
			"contract_id": string(split.ContractID),
			"percentage":  split.Percentage.String(),
			"split":       split.SplitAmount.StringFixed(),
			"recoupment":  split.Recoupment.StringFixed(),
			"net_payable": split.NetPayable.StringFixed(),
		})
	}
	formats := make(map[string]any, len(result.FormatRoyalties))
	for id, amount := range result.FormatRoyalties {
		formats[id] = amount.StringFixed()
	}
	return royalty.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		ActorID:   "statement-runner",
		Action:    royalty.AuditCalculationRun,
		TitleID:   result.TitleID,
		Payload: map[string]any{
			"period":      result.Period.Label(),
			"title_total": result.TitleTotalRoyalty.StringFixed(),
			"is_split":    result.IsSplitCalculation,
			"authors":     authors,
			"formats":     formats,
		},
	}
}
