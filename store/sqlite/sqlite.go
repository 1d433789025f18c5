/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements royalty.TxStore using SQLite: the sales/returns ledger, the
  catalog (authors, titles, contracts, ownership rosters), persisted
  statements and the audit log. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  royalty.SalesStore:     Append-only sales/returns ledger
  royalty.CatalogStore:   Authors, titles, contracts, ownership
  royalty.StatementStore: Frozen per-author statement lines
  royalty.RunStore:       Close-run records
  royalty.AuditLog:       Append-only audit trail
  royalty.TxStore:        All of the above inside one SQL transaction

APPEND-ONLY ENFORCEMENT:
  The ledger enforces append-only semantics:
  - No DELETE statements on sales_entries (Reset excepted)
  - The single sanctioned UPDATE is a pending return transitioning
    exactly once to approved or rejected
  - Corrections via compensating entries only

KEY TABLES:
  sales_entries:  Immutable ledger of sales and returns
  authors:        Royalty recipients
  titles:         Published works with per-format list prices
  contracts:      Per-(author, title) terms; schedules serialized as JSON
  ownership:      Co-author rosters in statement order
  statements:     One frozen line per contract per closed period
  statement_runs: One record per close-runner invocation
  audit_log:      Who did what when

INDEXES:
  Critical indexes for performance:
  - idx_sales_entries_title_occurred: Period replay (hot path)
  - idx_statements_contract_period:   Enforces one close per contract/period
  - idx_contracts_author_title:       Exact (author, title) contract lookup

MONEY COLUMNS:
  Amounts, rates and percentages are stored as decimal strings, never
  REAL. A cent written is the cent read back.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/royalty.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  // Use with the sales ledger
  ledger := royalty.NewSalesLedger(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - royalty/store.go: Interface definitions
  - royalty/store/memory.go: In-memory implementation for testing
  - statement/runner.go: Drives WithTx for period closes
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/royalty-engine/catalog"
	"github.com/warp/royalty-engine/royalty"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ royalty.Store   = (*Store)(nil)
	_ royalty.TxStore = (*Store)(nil)
	_ royalty.Store   = (*txStore)(nil)
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same statement helpers serve both direct calls and WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sales ledger (append-only)
	CREATE TABLE IF NOT EXISTS sales_entries (
		id TEXT PRIMARY KEY,
		title_id TEXT NOT NULL,
		format_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		source TEXT
	);

	-- Period replay loads one title's entries in occurrence order (hot path)
	CREATE INDEX IF NOT EXISTS idx_sales_entries_title_occurred
		ON sales_entries(title_id, occurred_at);

	-- For the pending-returns approval queue
	CREATE INDEX IF NOT EXISTS idx_sales_entries_pending
		ON sales_entries(status) WHERE kind = 'return';

	-- Authors (royalty recipients)
	CREATE TABLE IF NOT EXISTS authors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT
	);

	-- Titles; list_prices_json maps format ID to a decimal price string
	CREATE TABLE IF NOT EXISTS titles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		released_at TEXT NOT NULL,
		currency TEXT NOT NULL,
		list_prices_json TEXT NOT NULL
	);

	-- Contracts: the per-(author, title) terms snapshot.
	-- Tier schedules are serialized via the catalog wire format; advances
	-- are decimal strings so the recoupment ledger stays exact.
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		title_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		currency TEXT NOT NULL,
		advance_paid TEXT NOT NULL,
		advance_recouped TEXT NOT NULL,
		schedules_json TEXT NOT NULL
	);

	-- Exactly one contract per (author, title) pair
	CREATE UNIQUE INDEX IF NOT EXISTS idx_contracts_author_title
		ON contracts(author_id, title_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_title
		ON contracts(title_id);

	-- Ownership rosters; position preserves statement order, 0 is the lead
	CREATE TABLE IF NOT EXISTS ownership (
		title_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		author_id TEXT NOT NULL,
		percentage TEXT NOT NULL,
		PRIMARY KEY (title_id, position)
	);

	-- Statements: one frozen line per contract per closed period
	CREATE TABLE IF NOT EXISTS statements (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		title_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		period_label TEXT NOT NULL,
		currency TEXT NOT NULL,
		title_total TEXT NOT NULL,
		percentage TEXT NOT NULL,
		split_amount TEXT NOT NULL,
		recoupment TEXT NOT NULL,
		net_payable TEXT NOT NULL,
		advance_remaining TEXT NOT NULL,
		is_split INTEGER NOT NULL DEFAULT 0,
		generated_at TEXT NOT NULL
	);

	-- CRITICAL: one close per contract per period. A re-run of the same
	-- period collides here instead of double-paying (or double-recouping).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_statements_contract_period
		ON statements(contract_id, period_start);

	CREATE INDEX IF NOT EXISTS idx_statements_author
		ON statements(author_id);
	CREATE INDEX IF NOT EXISTS idx_statements_title
		ON statements(title_id);

	-- Close runs: one row per runner invocation, updated in place as the
	-- run progresses from running to completed/failed
	CREATE TABLE IF NOT EXISTS statement_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		period_label TEXT NOT NULL,
		trigger_source TEXT NOT NULL,
		status TEXT NOT NULL,
		titles_closed INTEGER NOT NULL DEFAULT 0,
		titles_skipped INTEGER NOT NULL DEFAULT 0,
		titles_failed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_statement_runs_started
		ON statement_runs(started_at);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		title_id TEXT,
		author_id TEXT,
		contract_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_ts
		ON audit_log(ts);
	CREATE INDEX IF NOT EXISTS idx_audit_log_title
		ON audit_log(title_id) WHERE title_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SALES LEDGER (royalty.SalesStore interface)
// =============================================================================

// Append adds an entry to the ledger.
func (s *Store) Append(ctx context.Context, entry royalty.SalesEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEntry(ctx, s.db, entry)
}

func (s *Store) appendEntry(ctx context.Context, db dbtx, entry royalty.SalesEntry) error {
	query := `
		INSERT INTO sales_entries
		(id, title_id, format_id, kind, quantity, status, occurred_at, recorded_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		string(entry.TitleID),
		entry.FormatID,
		string(entry.Kind),
		entry.Quantity,
		string(entry.Status),
		timeText(entry.OccurredAt),
		timeText(entry.RecordedAt),
		nullString(entry.Source),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return royalty.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to append sales entry: %w", err)
	}

	return nil
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []royalty.SalesEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reject duplicate IDs within the batch before touching the database
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.ID] {
			return royalty.ErrDuplicateEntry
		}
		seen[e.ID] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range entries {
		if err := s.appendEntry(ctx, sqlTx, e); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Load returns all entries for a title, ordered by occurrence.
func (s *Store) Load(ctx context.Context, titleID royalty.TitleID) ([]royalty.SalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadEntries(ctx, s.db, titleID)
}

func (s *Store) loadEntries(ctx context.Context, db dbtx, titleID royalty.TitleID) ([]royalty.SalesEntry, error) {
	query := `
		SELECT id, title_id, format_id, kind, quantity, status, occurred_at, recorded_at, source
		FROM sales_entries
		WHERE title_id = ?
		ORDER BY occurred_at ASC, recorded_at ASC
	`

	return s.queryEntries(ctx, db, query, string(titleID))
}

// LoadRange returns a title's entries with occurred_at in [from, to).
func (s *Store) LoadRange(ctx context.Context, titleID royalty.TitleID, from, to time.Time) ([]royalty.SalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadEntryRange(ctx, s.db, titleID, from, to)
}

func (s *Store) loadEntryRange(ctx context.Context, db dbtx, titleID royalty.TitleID, from, to time.Time) ([]royalty.SalesEntry, error) {
	query := `
		SELECT id, title_id, format_id, kind, quantity, status, occurred_at, recorded_at, source
		FROM sales_entries
		WHERE title_id = ?
		  AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, recorded_at ASC
	`

	return s.queryEntries(ctx, db, query, string(titleID), timeText(from), timeText(to))
}

// ApproveReturn transitions a pending return to approved.
func (s *Store) ApproveReturn(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setReturnStatus(ctx, s.db, entryID, royalty.StatusApproved)
}

// RejectReturn transitions a pending return to rejected.
func (s *Store) RejectReturn(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setReturnStatus(ctx, s.db, entryID, royalty.StatusRejected)
}

func (s *Store) setReturnStatus(ctx context.Context, db dbtx, entryID string, status royalty.ReturnStatus) error {
	var kind, current string
	err := db.QueryRowContext(ctx,
		"SELECT kind, status FROM sales_entries WHERE id = ?",
		entryID,
	).Scan(&kind, &current)

	if err == sql.ErrNoRows {
		return fmt.Errorf("sales entry not found: %s", entryID)
	}
	if err != nil {
		return err
	}
	if royalty.EntryKind(kind) != royalty.EntryReturn {
		return fmt.Errorf("entry %s is not a return", entryID)
	}
	if royalty.ReturnStatus(current) != royalty.StatusPending {
		return fmt.Errorf("return %s already %s", entryID, current)
	}

	// The one sanctioned UPDATE on the ledger: pending -> approved/rejected
	_, err = db.ExecContext(ctx,
		"UPDATE sales_entries SET status = ? WHERE id = ?",
		string(status), entryID,
	)
	return err
}

// Exists checks whether an entry ID was already recorded.
func (s *Store) Exists(ctx context.Context, entryID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entryExists(ctx, s.db, entryID)
}

func (s *Store) entryExists(ctx context.Context, db dbtx, entryID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sales_entries WHERE id = ?",
		entryID,
	).Scan(&count)

	return count > 0, err
}

func (s *Store) queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]royalty.SalesEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales entries: %w", err)
	}
	defer rows.Close()

	var entries []royalty.SalesEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (royalty.SalesEntry, error) {
	var (
		e          royalty.SalesEntry
		occurredAt string
		recordedAt string
		source     sql.NullString
	)

	err := rows.Scan(
		&e.ID, &e.TitleID, &e.FormatID, &e.Kind, &e.Quantity, &e.Status,
		&occurredAt, &recordedAt, &source,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan sales entry: %w", err)
	}

	e.OccurredAt = parseTime(occurredAt)
	e.RecordedAt = parseTime(recordedAt)
	e.Source = source.String

	return e, nil
}

// =============================================================================
// CATALOG (royalty.CatalogStore interface)
// =============================================================================

// PutAuthor creates or updates an author.
func (s *Store) PutAuthor(ctx context.Context, author royalty.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putAuthor(ctx, s.db, author)
}

func (s *Store) putAuthor(ctx context.Context, db dbtx, author royalty.Author) error {
	query := `
		INSERT INTO authors (id, name, email)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email
	`

	_, err := db.ExecContext(ctx, query,
		string(author.ID), author.Name, nullString(author.Email),
	)
	return err
}

// GetAuthor retrieves an author by ID.
func (s *Store) GetAuthor(ctx context.Context, id royalty.AuthorID) (royalty.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAuthor(ctx, s.db, id)
}

func (s *Store) getAuthor(ctx context.Context, db dbtx, id royalty.AuthorID) (royalty.Author, error) {
	var (
		a     royalty.Author
		email sql.NullString
	)

	err := db.QueryRowContext(ctx,
		"SELECT id, name, email FROM authors WHERE id = ?",
		string(id),
	).Scan(&a.ID, &a.Name, &email)

	if err == sql.ErrNoRows {
		return royalty.Author{}, fmt.Errorf("%w: %s", royalty.ErrAuthorNotFound, id)
	}
	if err != nil {
		return royalty.Author{}, err
	}

	a.Email = email.String
	return a, nil
}

// ListAuthors returns all authors ordered by ID.
func (s *Store) ListAuthors(ctx context.Context) ([]royalty.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listAuthors(ctx, s.db)
}

func (s *Store) listAuthors(ctx context.Context, db dbtx) ([]royalty.Author, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, email FROM authors ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []royalty.Author
	for rows.Next() {
		var (
			a     royalty.Author
			email sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &email); err != nil {
			return nil, err
		}
		a.Email = email.String
		authors = append(authors, a)
	}

	return authors, rows.Err()
}

// PutTitle creates or updates a title.
func (s *Store) PutTitle(ctx context.Context, title royalty.Title) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putTitle(ctx, s.db, title)
}

func (s *Store) putTitle(ctx context.Context, db dbtx, title royalty.Title) error {
	query := `
		INSERT INTO titles (id, name, released_at, currency, list_prices_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			released_at = excluded.released_at,
			currency = excluded.currency,
			list_prices_json = excluded.list_prices_json
	`

	_, err := db.ExecContext(ctx, query,
		string(title.ID), title.Name,
		timeText(title.ReleasedAt),
		string(title.Currency),
		listPricesJSON(title),
	)
	return err
}

// GetTitle retrieves a title by ID.
func (s *Store) GetTitle(ctx context.Context, id royalty.TitleID) (royalty.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getTitle(ctx, s.db, id)
}

func (s *Store) getTitle(ctx context.Context, db dbtx, id royalty.TitleID) (royalty.Title, error) {
	var (
		t          royalty.Title
		releasedAt string
		pricesJSON string
	)

	err := db.QueryRowContext(ctx,
		"SELECT id, name, released_at, currency, list_prices_json FROM titles WHERE id = ?",
		string(id),
	).Scan(&t.ID, &t.Name, &releasedAt, &t.Currency, &pricesJSON)

	if err == sql.ErrNoRows {
		return royalty.Title{}, fmt.Errorf("%w: %s", royalty.ErrTitleNotFound, id)
	}
	if err != nil {
		return royalty.Title{}, err
	}

	t.ReleasedAt = parseTime(releasedAt)
	t.ListPrices = parseListPrices(pricesJSON, t.Currency)
	return t, nil
}

// ListTitles returns all titles ordered by ID.
func (s *Store) ListTitles(ctx context.Context) ([]royalty.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listTitles(ctx, s.db)
}

func (s *Store) listTitles(ctx context.Context, db dbtx) ([]royalty.Title, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, released_at, currency, list_prices_json FROM titles ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []royalty.Title
	for rows.Next() {
		var (
			t          royalty.Title
			releasedAt string
			pricesJSON string
		)
		if err := rows.Scan(&t.ID, &t.Name, &releasedAt, &t.Currency, &pricesJSON); err != nil {
			return nil, err
		}
		t.ReleasedAt = parseTime(releasedAt)
		t.ListPrices = parseListPrices(pricesJSON, t.Currency)
		titles = append(titles, t)
	}

	return titles, rows.Err()
}

// PutContract creates or updates a contract.
func (s *Store) PutContract(ctx context.Context, contract royalty.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putContract(ctx, s.db, contract)
}

func (s *Store) putContract(ctx context.Context, db dbtx, contract royalty.Contract) error {
	schedulesJSON, err := json.Marshal(catalog.SchedulesToJSON(contract.Schedules))
	if err != nil {
		return fmt.Errorf("failed to serialize schedules for %s: %w", contract.ID, err)
	}

	query := `
		INSERT INTO contracts
		(id, author_id, title_id, mode, currency, advance_paid, advance_recouped, schedules_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			author_id = excluded.author_id,
			title_id = excluded.title_id,
			mode = excluded.mode,
			currency = excluded.currency,
			advance_paid = excluded.advance_paid,
			advance_recouped = excluded.advance_recouped,
			schedules_json = excluded.schedules_json
	`

	_, err = db.ExecContext(ctx, query,
		string(contract.ID),
		string(contract.AuthorID),
		string(contract.TitleID),
		string(contract.Mode),
		string(contract.Currency),
		contract.AdvancePaid.Value.String(),
		contract.AdvanceRecouped.Value.String(),
		string(schedulesJSON),
	)

	if err != nil {
		// A different contract ID for the same (author, title) pair trips
		// idx_contracts_author_title
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w for author %s on title %s",
				royalty.ErrContractExists, contract.AuthorID, contract.TitleID)
		}
		return fmt.Errorf("failed to save contract: %w", err)
	}

	return nil
}

// GetContract retrieves a contract by ID.
func (s *Store) GetContract(ctx context.Context, id royalty.ContractID) (royalty.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getContract(ctx, s.db, id)
}

func (s *Store) getContract(ctx context.Context, db dbtx, id royalty.ContractID) (royalty.Contract, error) {
	query := `
		SELECT id, author_id, title_id, mode, currency, advance_paid, advance_recouped, schedules_json
		FROM contracts
		WHERE id = ?
	`

	contracts, err := s.queryContracts(ctx, db, query, string(id))
	if err != nil {
		return royalty.Contract{}, err
	}
	if len(contracts) == 0 {
		return royalty.Contract{}, fmt.Errorf("%w: %s", royalty.ErrContractNotFound, id)
	}
	return contracts[0], nil
}

// ContractFor returns the contract matching (author, title) exactly.
func (s *Store) ContractFor(ctx context.Context, authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.contractFor(ctx, s.db, authorID, titleID)
}

func (s *Store) contractFor(ctx context.Context, db dbtx, authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	query := `
		SELECT id, author_id, title_id, mode, currency, advance_paid, advance_recouped, schedules_json
		FROM contracts
		WHERE author_id = ? AND title_id = ?
	`

	contracts, err := s.queryContracts(ctx, db, query, string(authorID), string(titleID))
	if err != nil {
		return royalty.Contract{}, err
	}
	if len(contracts) == 0 {
		return royalty.Contract{}, &royalty.ContractNotFoundError{AuthorID: authorID, TitleID: titleID}
	}
	return contracts[0], nil
}

// ContractsForTitle returns every contract attached to a title.
func (s *Store) ContractsForTitle(ctx context.Context, titleID royalty.TitleID) ([]royalty.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.contractsForTitle(ctx, s.db, titleID)
}

func (s *Store) contractsForTitle(ctx context.Context, db dbtx, titleID royalty.TitleID) ([]royalty.Contract, error) {
	query := `
		SELECT id, author_id, title_id, mode, currency, advance_paid, advance_recouped, schedules_json
		FROM contracts
		WHERE title_id = ?
		ORDER BY id
	`

	return s.queryContracts(ctx, db, query, string(titleID))
}

func (s *Store) queryContracts(ctx context.Context, db dbtx, query string, args ...any) ([]royalty.Contract, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []royalty.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

func scanContract(rows *sql.Rows) (royalty.Contract, error) {
	var (
		c             royalty.Contract
		paid          string
		recouped      string
		schedulesJSON string
	)

	err := rows.Scan(
		&c.ID, &c.AuthorID, &c.TitleID, &c.Mode, &c.Currency,
		&paid, &recouped, &schedulesJSON,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan contract: %w", err)
	}

	var list []catalog.ScheduleJSON
	if err := json.Unmarshal([]byte(schedulesJSON), &list); err != nil {
		return c, fmt.Errorf("contract %s has malformed schedules: %w", c.ID, err)
	}
	schedules, err := catalog.SchedulesFromJSON(list)
	if err != nil {
		return c, fmt.Errorf("contract %s: %w", c.ID, err)
	}

	c.Schedules = schedules
	c.AdvancePaid = scanMoney(paid, c.Currency)
	c.AdvanceRecouped = scanMoney(recouped, c.Currency)

	return c, nil
}

// SetOwnership replaces a title's roster atomically. Row position preserves
// statement order; the first entry is the lead author.
func (s *Store) SetOwnership(ctx context.Context, titleID royalty.TitleID, entries []royalty.OwnershipEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.setOwnership(ctx, sqlTx, titleID, entries); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *Store) setOwnership(ctx context.Context, db dbtx, titleID royalty.TitleID, entries []royalty.OwnershipEntry) error {
	if _, err := db.ExecContext(ctx,
		"DELETE FROM ownership WHERE title_id = ?", string(titleID),
	); err != nil {
		return err
	}

	for position, e := range entries {
		_, err := db.ExecContext(ctx,
			"INSERT INTO ownership (title_id, position, author_id, percentage) VALUES (?, ?, ?, ?)",
			string(titleID), position, string(e.AuthorID), e.Percentage.String(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// OwnershipFor returns a title's roster in statement order.
func (s *Store) OwnershipFor(ctx context.Context, titleID royalty.TitleID) ([]royalty.OwnershipEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ownershipFor(ctx, s.db, titleID)
}

func (s *Store) ownershipFor(ctx context.Context, db dbtx, titleID royalty.TitleID) ([]royalty.OwnershipEntry, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT author_id, percentage FROM ownership WHERE title_id = ? ORDER BY position ASC",
		string(titleID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []royalty.OwnershipEntry
	for rows.Next() {
		var (
			e          royalty.OwnershipEntry
			percentage string
		)
		if err := rows.Scan(&e.AuthorID, &percentage); err != nil {
			return nil, err
		}
		e.Percentage = royalty.MustParseDecimal(percentage)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpdateAdvanceRecouped raises a contract's cumulative recouped amount.
// Decreases are rejected: recoupment never reverses.
func (s *Store) UpdateAdvanceRecouped(ctx context.Context, id royalty.ContractID, recouped royalty.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateAdvance(ctx, s.db, id, recouped)
}

func (s *Store) updateAdvance(ctx context.Context, db dbtx, id royalty.ContractID, recouped royalty.Money) error {
	var paid, current, currency string
	err := db.QueryRowContext(ctx,
		"SELECT advance_paid, advance_recouped, currency FROM contracts WHERE id = ?",
		string(id),
	).Scan(&paid, &current, &currency)

	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", royalty.ErrContractNotFound, id)
	}
	if err != nil {
		return err
	}

	advancePaid := scanMoney(paid, royalty.Currency(currency))
	advanceRecouped := scanMoney(current, royalty.Currency(currency))
	if recouped.LessThan(advanceRecouped) {
		return fmt.Errorf("advance recouped for %s cannot decrease: %s -> %s",
			id, advanceRecouped.StringFixed(), recouped.StringFixed())
	}
	if recouped.GreaterThan(advancePaid) {
		return fmt.Errorf("advance recouped for %s cannot exceed advance paid %s",
			id, advancePaid.StringFixed())
	}

	_, err = db.ExecContext(ctx,
		"UPDATE contracts SET advance_recouped = ? WHERE id = ?",
		recouped.Value.String(), string(id),
	)
	return err
}

// =============================================================================
// STATEMENTS (royalty.StatementStore interface)
// =============================================================================

// PutStatement persists one frozen statement line. The unique index on
// (contract_id, period_start) makes period closes idempotent.
func (s *Store) PutStatement(ctx context.Context, st royalty.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putStatement(ctx, s.db, st)
}

func (s *Store) putStatement(ctx context.Context, db dbtx, st royalty.Statement) error {
	query := `
		INSERT INTO statements
		(id, contract_id, author_id, title_id, period_start, period_end, period_label,
		 currency, title_total, percentage, split_amount, recoupment, net_payable,
		 advance_remaining, is_split, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(st.ID),
		string(st.ContractID),
		string(st.AuthorID),
		string(st.TitleID),
		timeText(st.PeriodStart),
		timeText(st.PeriodEnd),
		st.PeriodLabel,
		string(st.TitleTotal.Currency),
		st.TitleTotal.Value.String(),
		st.Percentage.String(),
		st.SplitAmount.Value.String(),
		st.Recoupment.Value.String(),
		st.NetPayable.Value.String(),
		st.AdvanceRemaining.Value.String(),
		st.IsSplit,
		timeText(st.GeneratedAt),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return royalty.ErrStatementExists
		}
		return fmt.Errorf("failed to insert statement: %w", err)
	}

	return nil
}

// StatementsForAuthor returns an author's statements across all titles.
func (s *Store) StatementsForAuthor(ctx context.Context, authorID royalty.AuthorID) ([]royalty.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.statementsForAuthor(ctx, s.db, authorID)
}

func (s *Store) statementsForAuthor(ctx context.Context, db dbtx, authorID royalty.AuthorID) ([]royalty.Statement, error) {
	query := `
		SELECT id, contract_id, author_id, title_id, period_start, period_end, period_label,
		       currency, title_total, percentage, split_amount, recoupment, net_payable,
		       advance_remaining, is_split, generated_at
		FROM statements
		WHERE author_id = ?
		ORDER BY period_start ASC, id ASC
	`

	return s.queryStatements(ctx, db, query, string(authorID))
}

// StatementsForTitle returns a title's statements across all authors.
func (s *Store) StatementsForTitle(ctx context.Context, titleID royalty.TitleID) ([]royalty.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.statementsForTitle(ctx, s.db, titleID)
}

func (s *Store) statementsForTitle(ctx context.Context, db dbtx, titleID royalty.TitleID) ([]royalty.Statement, error) {
	query := `
		SELECT id, contract_id, author_id, title_id, period_start, period_end, period_label,
		       currency, title_total, percentage, split_amount, recoupment, net_payable,
		       advance_remaining, is_split, generated_at
		FROM statements
		WHERE title_id = ?
		ORDER BY period_start ASC, id ASC
	`

	return s.queryStatements(ctx, db, query, string(titleID))
}

// StatementExists checks whether a contract's period was already closed.
func (s *Store) StatementExists(ctx context.Context, contractID royalty.ContractID, periodStart time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.statementExists(ctx, s.db, contractID, periodStart)
}

func (s *Store) statementExists(ctx context.Context, db dbtx, contractID royalty.ContractID, periodStart time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM statements WHERE contract_id = ? AND period_start = ?",
		string(contractID), timeText(periodStart),
	).Scan(&count)

	return count > 0, err
}

func (s *Store) queryStatements(ctx context.Context, db dbtx, query string, args ...any) ([]royalty.Statement, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	var statements []royalty.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}

	return statements, rows.Err()
}

func scanStatement(rows *sql.Rows) (royalty.Statement, error) {
	var (
		st          royalty.Statement
		periodStart string
		periodEnd   string
		currency    string
		titleTotal  string
		percentage  string
		splitAmount string
		recoupment  string
		netPayable  string
		remaining   string
		generatedAt string
	)

	err := rows.Scan(
		&st.ID, &st.ContractID, &st.AuthorID, &st.TitleID,
		&periodStart, &periodEnd, &st.PeriodLabel,
		&currency, &titleTotal, &percentage, &splitAmount,
		&recoupment, &netPayable, &remaining,
		&st.IsSplit, &generatedAt,
	)
	if err != nil {
		return st, fmt.Errorf("failed to scan statement: %w", err)
	}

	cur := royalty.Currency(currency)
	st.PeriodStart = parseTime(periodStart)
	st.PeriodEnd = parseTime(periodEnd)
	st.TitleTotal = scanMoney(titleTotal, cur)
	st.Percentage = royalty.MustParseDecimal(percentage)
	st.SplitAmount = scanMoney(splitAmount, cur)
	st.Recoupment = scanMoney(recoupment, cur)
	st.NetPayable = scanMoney(netPayable, cur)
	st.AdvanceRemaining = scanMoney(remaining, cur)
	st.GeneratedAt = parseTime(generatedAt)

	return st, nil
}

// =============================================================================
// STATEMENT RUNS (royalty.RunStore interface)
// =============================================================================

// PutRun upserts a close-run record. The same ID is written once as running
// and again as completed/failed.
func (s *Store) PutRun(ctx context.Context, run royalty.StatementRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putRun(ctx, s.db, run)
}

func (s *Store) putRun(ctx context.Context, db dbtx, run royalty.StatementRun) error {
	query := `
		INSERT INTO statement_runs
		(id, period_start, period_end, period_label, trigger_source, status,
		 titles_closed, titles_skipped, titles_failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			titles_closed = excluded.titles_closed,
			titles_skipped = excluded.titles_skipped,
			titles_failed = excluded.titles_failed,
			error = excluded.error,
			finished_at = excluded.finished_at
	`

	var finishedAt sql.NullString
	if run.FinishedAt != nil {
		finishedAt = sql.NullString{String: timeText(*run.FinishedAt), Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		run.ID,
		timeText(run.PeriodStart),
		timeText(run.PeriodEnd),
		run.PeriodLabel,
		run.Trigger,
		string(run.Status),
		run.TitlesClosed,
		run.TitlesSkipped,
		run.TitlesFailed,
		nullString(run.Error),
		timeText(run.StartedAt),
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save statement run: %w", err)
	}

	return nil
}

// ListRuns returns close runs newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]royalty.StatementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listRuns(ctx, s.db, limit)
}

func (s *Store) listRuns(ctx context.Context, db dbtx, limit int) ([]royalty.StatementRun, error) {
	query := `
		SELECT id, period_start, period_end, period_label, trigger_source, status,
		       titles_closed, titles_skipped, titles_failed, error, started_at, finished_at
		FROM statement_runs
		ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement runs: %w", err)
	}
	defer rows.Close()

	var runs []royalty.StatementRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (royalty.StatementRun, error) {
	var (
		run         royalty.StatementRun
		periodStart string
		periodEnd   string
		errText     sql.NullString
		startedAt   string
		finishedAt  sql.NullString
	)

	err := rows.Scan(
		&run.ID, &periodStart, &periodEnd, &run.PeriodLabel,
		&run.Trigger, &run.Status,
		&run.TitlesClosed, &run.TitlesSkipped, &run.TitlesFailed,
		&errText, &startedAt, &finishedAt,
	)
	if err != nil {
		return run, fmt.Errorf("failed to scan statement run: %w", err)
	}

	run.PeriodStart = parseTime(periodStart)
	run.PeriodEnd = parseTime(periodEnd)
	run.Error = errText.String
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}

	return run, nil
}

// =============================================================================
// AUDIT LOG (royalty.AuditLog interface)
// =============================================================================

// AppendAudit records one audit entry. Append-only.
func (s *Store) AppendAudit(ctx context.Context, entry royalty.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendAudit(ctx, s.db, entry)
}

func (s *Store) appendAudit(ctx context.Context, db dbtx, entry royalty.AuditEntry) error {
	payloadJSON, _ := json.Marshal(entry.Payload)

	query := `
		INSERT INTO audit_log
		(id, ts, actor_id, action, title_id, author_id, contract_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		timeText(entry.Timestamp),
		entry.ActorID,
		string(entry.Action),
		nullString(string(entry.TitleID)),
		nullString(string(entry.AuthorID)),
		nullString(string(entry.ContractID)),
		string(payloadJSON),
	)

	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// QueryAudit returns entries matching the filter, in timestamp order.
func (s *Store) QueryAudit(ctx context.Context, filter royalty.AuditFilter) ([]royalty.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAudit(ctx, s.db, filter)
}

func (s *Store) queryAudit(ctx context.Context, db dbtx, filter royalty.AuditFilter) ([]royalty.AuditEntry, error) {
	var (
		where []string
		args  []any
	)

	if filter.TitleID != nil {
		where = append(where, "title_id = ?")
		args = append(args, string(*filter.TitleID))
	}
	if filter.AuthorID != nil {
		where = append(where, "author_id = ?")
		args = append(args, string(*filter.AuthorID))
	}
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Actions)), ",")
		where = append(where, "action IN ("+placeholders+")")
		for _, a := range filter.Actions {
			args = append(args, string(a))
		}
	}
	if filter.From != nil {
		where = append(where, "ts >= ?")
		args = append(args, timeText(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "ts <= ?")
		args = append(args, timeText(*filter.To))
	}

	query := `
		SELECT id, ts, actor_id, action, title_id, author_id, contract_id, payload_json
		FROM audit_log
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []royalty.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func scanAudit(rows *sql.Rows) (royalty.AuditEntry, error) {
	var (
		e           royalty.AuditEntry
		ts          string
		titleID     sql.NullString
		authorID    sql.NullString
		contractID  sql.NullString
		payloadJSON sql.NullString
	)

	err := rows.Scan(
		&e.ID, &ts, &e.ActorID, &e.Action,
		&titleID, &authorID, &contractID, &payloadJSON,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	e.Timestamp = parseTime(ts)
	e.TitleID = royalty.TitleID(titleID.String)
	e.AuthorID = royalty.AuthorID(authorID.String)
	e.ContractID = royalty.ContractID(contractID.String)

	if payloadJSON.Valid && payloadJSON.String != "" {
		json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
	}

	return e, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing and demo scenario loading).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reset(ctx, s.db)
}

func (s *Store) reset(ctx context.Context, db dbtx) error {
	tables := []string{
		"sales_entries", "statements", "statement_runs", "audit_log",
		"ownership", "contracts", "titles", "authors",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (royalty.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The view passed
// to fn runs its statements on the transaction, so a period close commits
// statements, recoupment updates and audit entries together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(store royalty.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txStore{tx: sqlTx, parent: s}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every call through the parent's statement helpers with the
// open *sql.Tx. It never takes the parent's mutex; WithTx already holds it.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Append(ctx context.Context, entry royalty.SalesEntry) error {
	return ts.parent.appendEntry(ctx, ts.tx, entry)
}

func (ts *txStore) AppendBatch(ctx context.Context, entries []royalty.SalesEntry) error {
	for _, e := range entries {
		if err := ts.parent.appendEntry(ctx, ts.tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Load(ctx context.Context, titleID royalty.TitleID) ([]royalty.SalesEntry, error) {
	return ts.parent.loadEntries(ctx, ts.tx, titleID)
}

func (ts *txStore) LoadRange(ctx context.Context, titleID royalty.TitleID, from, to time.Time) ([]royalty.SalesEntry, error) {
	return ts.parent.loadEntryRange(ctx, ts.tx, titleID, from, to)
}

func (ts *txStore) ApproveReturn(ctx context.Context, entryID string) error {
	return ts.parent.setReturnStatus(ctx, ts.tx, entryID, royalty.StatusApproved)
}

func (ts *txStore) RejectReturn(ctx context.Context, entryID string) error {
	return ts.parent.setReturnStatus(ctx, ts.tx, entryID, royalty.StatusRejected)
}

func (ts *txStore) Exists(ctx context.Context, entryID string) (bool, error) {
	return ts.parent.entryExists(ctx, ts.tx, entryID)
}

func (ts *txStore) PutAuthor(ctx context.Context, author royalty.Author) error {
	return ts.parent.putAuthor(ctx, ts.tx, author)
}

func (ts *txStore) GetAuthor(ctx context.Context, id royalty.AuthorID) (royalty.Author, error) {
	return ts.parent.getAuthor(ctx, ts.tx, id)
}

func (ts *txStore) ListAuthors(ctx context.Context) ([]royalty.Author, error) {
	return ts.parent.listAuthors(ctx, ts.tx)
}

func (ts *txStore) PutTitle(ctx context.Context, title royalty.Title) error {
	return ts.parent.putTitle(ctx, ts.tx, title)
}

func (ts *txStore) GetTitle(ctx context.Context, id royalty.TitleID) (royalty.Title, error) {
	return ts.parent.getTitle(ctx, ts.tx, id)
}

func (ts *txStore) ListTitles(ctx context.Context) ([]royalty.Title, error) {
	return ts.parent.listTitles(ctx, ts.tx)
}

func (ts *txStore) PutContract(ctx context.Context, contract royalty.Contract) error {
	return ts.parent.putContract(ctx, ts.tx, contract)
}

func (ts *txStore) GetContract(ctx context.Context, id royalty.ContractID) (royalty.Contract, error) {
	return ts.parent.getContract(ctx, ts.tx, id)
}

func (ts *txStore) ContractFor(ctx context.Context, authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	return ts.parent.contractFor(ctx, ts.tx, authorID, titleID)
}

func (ts *txStore) ContractsForTitle(ctx context.Context, titleID royalty.TitleID) ([]royalty.Contract, error) {
	return ts.parent.contractsForTitle(ctx, ts.tx, titleID)
}

func (ts *txStore) SetOwnership(ctx context.Context, titleID royalty.TitleID, entries []royalty.OwnershipEntry) error {
	return ts.parent.setOwnership(ctx, ts.tx, titleID, entries)
}

func (ts *txStore) OwnershipFor(ctx context.Context, titleID royalty.TitleID) ([]royalty.OwnershipEntry, error) {
	return ts.parent.ownershipFor(ctx, ts.tx, titleID)
}

func (ts *txStore) UpdateAdvanceRecouped(ctx context.Context, id royalty.ContractID, recouped royalty.Money) error {
	return ts.parent.updateAdvance(ctx, ts.tx, id, recouped)
}

func (ts *txStore) PutStatement(ctx context.Context, st royalty.Statement) error {
	return ts.parent.putStatement(ctx, ts.tx, st)
}

func (ts *txStore) StatementsForAuthor(ctx context.Context, authorID royalty.AuthorID) ([]royalty.Statement, error) {
	return ts.parent.statementsForAuthor(ctx, ts.tx, authorID)
}

func (ts *txStore) StatementsForTitle(ctx context.Context, titleID royalty.TitleID) ([]royalty.Statement, error) {
	return ts.parent.statementsForTitle(ctx, ts.tx, titleID)
}

func (ts *txStore) StatementExists(ctx context.Context, contractID royalty.ContractID, periodStart time.Time) (bool, error) {
	return ts.parent.statementExists(ctx, ts.tx, contractID, periodStart)
}

func (ts *txStore) PutRun(ctx context.Context, run royalty.StatementRun) error {
	return ts.parent.putRun(ctx, ts.tx, run)
}

func (ts *txStore) ListRuns(ctx context.Context, limit int) ([]royalty.StatementRun, error) {
	return ts.parent.listRuns(ctx, ts.tx, limit)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry royalty.AuditEntry) error {
	return ts.parent.appendAudit(ctx, ts.tx, entry)
}

func (ts *txStore) QueryAudit(ctx context.Context, filter royalty.AuditFilter) ([]royalty.AuditEntry, error) {
	return ts.parent.queryAudit(ctx, ts.tx, filter)
}

func (ts *txStore) Reset(ctx context.Context) error {
	return ts.parent.reset(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

// timeText normalizes timestamps to UTC RFC3339 so lexicographic range
// comparisons in SQL match chronological order.
func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func scanMoney(value string, currency royalty.Currency) royalty.Money {
	return royalty.Money{Value: royalty.MustParseDecimal(value), Currency: currency}
}

func listPricesJSON(t royalty.Title) string {
	prices := make(map[string]string, len(t.ListPrices))
	for formatID, price := range t.ListPrices {
		prices[formatID] = price.Value.String()
	}
	b, _ := json.Marshal(prices)
	return string(b)
}

func parseListPrices(jsonStr string, currency royalty.Currency) map[string]royalty.Money {
	var raw map[string]string
	if jsonStr != "" {
		json.Unmarshal([]byte(jsonStr), &raw)
	}
	prices := make(map[string]royalty.Money, len(raw))
	for formatID, value := range raw {
		prices[formatID] = scanMoney(value, currency)
	}
	return prices
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
