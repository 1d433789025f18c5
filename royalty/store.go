/*
store.go - Persistence interfaces for the royalty service

PURPOSE:
  Defines the interface between the calculation core and the database.
  The core itself never touches these; they exist for the surrounding
  service (statement runner, API) which resolves snapshots in and persists
  results out. Different implementations can use SQLite or in-memory
  storage.

KEY INTERFACES:
  SalesStore:     The sales/returns ledger (append-only entries)
  CatalogStore:   Authors, titles, contracts, ownership rosters
  StatementStore: Persisted per-author statement lines
  RunStore:       Close-run records (scheduler and manual closes)
  TxStore:        Transactional composition of all of the above

APPEND-ONLY CONTRACT:
  Sales entries are never updated or deleted once recorded. The single
  exception is the return-approval workflow: a return enters as pending
  and transitions exactly once to approved or rejected. Only approved
  returns reach the calculation.

ATOMICITY:
  Persisting a title's period is an all-or-nothing write: every author's
  statement and every contract's recoupment update commit in one
  transaction, or none do. TxStore.WithTx is the boundary for that.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - royalty/store: In-memory for testing

SEE ALSO:
  - ledger.go: Derives calculation inputs from SalesStore
  - statement/runner.go: Drives WithTx for period closes
*/
package royalty

import (
	"context"
	"time"
)

// =============================================================================
// SALES LEDGER ENTRIES
// =============================================================================

type EntryKind string

const (
	EntrySale   EntryKind = "sale"
	EntryReturn EntryKind = "return"
)

// ReturnStatus tracks the approval workflow for returns. Sales are always
// approved on entry.
type ReturnStatus string

const (
	StatusApproved ReturnStatus = "approved"
	StatusPending  ReturnStatus = "pending"
	StatusRejected ReturnStatus = "rejected"
)

// SalesEntry is one recorded sale or return for a title/format. Entries are
// append-only; the ID doubles as the idempotency key, so a retried feed
// write is rejected with ErrDuplicateEntry rather than double-counted.
type SalesEntry struct {
	ID       string
	TitleID  TitleID
	FormatID string
	Kind     EntryKind
	Quantity int64
	Status   ReturnStatus

	// OccurredAt places the entry in a statement period; RecordedAt is
	// when the feed delivered it.
	OccurredAt time.Time
	RecordedAt time.Time

	// Source names the sales channel that reported the entry.
	Source string
}

// Counts reports whether the entry contributes to net sales: sales always,
// returns only once approved.
func (e SalesEntry) Counts() bool {
	if e.Kind == EntryReturn {
		return e.Status == StatusApproved
	}
	return true
}

// =============================================================================
// CATALOG RECORDS
// =============================================================================

// Author is a royalty recipient.
type Author struct {
	ID    AuthorID
	Name  string
	Email string
}

// Title is one published work. ListPrices carries the per-format unit price
// that tier rates apply to.
type Title struct {
	ID         TitleID
	Name       string
	ReleasedAt time.Time
	Currency   Currency
	ListPrices map[string]Money
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// SalesStore persists ledger entries.
// IMPORTANT: entries are append-only. Corrections are made by appending
// compensating entries, never by editing history.
type SalesStore interface {
	// Append persists one entry. Returns ErrDuplicateEntry if the ID was
	// already recorded.
	Append(ctx context.Context, entry SalesEntry) error

	// AppendBatch persists multiple entries atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []SalesEntry) error

	// Load returns all entries for a title, ordered by OccurredAt.
	Load(ctx context.Context, titleID TitleID) ([]SalesEntry, error)

	// LoadRange returns a title's entries with OccurredAt in [from, to).
	LoadRange(ctx context.Context, titleID TitleID, from, to time.Time) ([]SalesEntry, error)

	// ApproveReturn transitions a pending return to approved.
	ApproveReturn(ctx context.Context, entryID string) error

	// RejectReturn transitions a pending return to rejected.
	RejectReturn(ctx context.Context, entryID string) error

	// Exists checks whether an entry ID was already recorded.
	Exists(ctx context.Context, entryID string) (bool, error)
}

// CatalogStore persists authors, titles, contracts and ownership rosters.
type CatalogStore interface {
	PutAuthor(ctx context.Context, author Author) error
	GetAuthor(ctx context.Context, id AuthorID) (Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)

	PutTitle(ctx context.Context, title Title) error
	GetTitle(ctx context.Context, id TitleID) (Title, error)
	ListTitles(ctx context.Context) ([]Title, error)

	PutContract(ctx context.Context, contract Contract) error
	GetContract(ctx context.Context, id ContractID) (Contract, error)

	// ContractFor returns the contract matching (author, title) exactly.
	// Returns ErrContractNotFound when the pair has none.
	ContractFor(ctx context.Context, authorID AuthorID, titleID TitleID) (Contract, error)

	// ContractsForTitle returns every contract attached to a title.
	ContractsForTitle(ctx context.Context, titleID TitleID) ([]Contract, error)

	// SetOwnership replaces a title's roster. Order is statement order;
	// the first entry is the lead author.
	SetOwnership(ctx context.Context, titleID TitleID, entries []OwnershipEntry) error
	OwnershipFor(ctx context.Context, titleID TitleID) ([]OwnershipEntry, error)

	// UpdateAdvanceRecouped raises a contract's cumulative recouped amount.
	// Implementations must reject a decrease; recoupment never reverses.
	UpdateAdvanceRecouped(ctx context.Context, id ContractID, recouped Money) error
}

// StatementStore persists the per-author output of period closes.
type StatementStore interface {
	// PutStatement persists one line. Returns ErrStatementExists when the
	// (contract, period start) pair already has one.
	PutStatement(ctx context.Context, st Statement) error

	StatementsForAuthor(ctx context.Context, authorID AuthorID) ([]Statement, error)
	StatementsForTitle(ctx context.Context, titleID TitleID) ([]Statement, error)
	StatementExists(ctx context.Context, contractID ContractID, periodStart time.Time) (bool, error)
}

// =============================================================================
// STATEMENT RUNS - One record per close invocation
// =============================================================================

// RunStatus tracks a close run through its lifecycle.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run triggers.
const (
	TriggerScheduler = "scheduler"
	TriggerManual    = "manual"
)

// StatementRun records one invocation of the period-close runner. The record
// is written as running when the close starts and updated in place when it
// finishes, so an operator can see stuck runs as well as completed ones.
type StatementRun struct {
	ID          string
	PeriodStart time.Time
	PeriodEnd   time.Time
	PeriodLabel string

	// Trigger names what started the run: TriggerScheduler or TriggerManual.
	Trigger string

	Status        RunStatus
	TitlesClosed  int
	TitlesSkipped int
	TitlesFailed  int
	Error         string

	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStore persists close-run records.
type RunStore interface {
	// PutRun inserts or updates a run record keyed by ID.
	PutRun(ctx context.Context, run StatementRun) error

	// ListRuns returns runs newest first. A limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]StatementRun, error)
}

// =============================================================================
// AUDIT LOG - Separate from the ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string
	Action    AuditAction

	TitleID    TitleID
	AuthorID   AuthorID
	ContractID ContractID

	// Payload carries action-specific data; calculation runs record the
	// full result verbatim for traceability.
	Payload map[string]any
}

type AuditAction string

const (
	AuditSaleRecorded    AuditAction = "sale_recorded"
	AuditReturnRecorded  AuditAction = "return_recorded"
	AuditReturnApproved  AuditAction = "return_approved"
	AuditReturnRejected  AuditAction = "return_rejected"
	AuditCalculationRun  AuditAction = "calculation_run"
	AuditStatementPosted AuditAction = "statement_posted"
	AuditAdvanceRecouped AuditAction = "advance_recouped"
	AuditContractChanged AuditAction = "contract_changed"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	TitleID  *TitleID
	AuthorID *AuthorID
	ActorID  *string
	Actions  []AuditAction
	From     *time.Time
	To       *time.Time
}

// =============================================================================
// COMPOSED STORE
// =============================================================================

// Store aggregates every persistence concern the service touches.
type Store interface {
	SalesStore
	CatalogStore
	StatementStore
	RunStore
	AuditLog

	// Reset clears all data. Demo scenario loading only.
	Reset(ctx context.Context) error
}

// TxStore wraps Store with transaction support.
// Use this when persisting a period close: statements and recoupment
// updates for one title must commit together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
