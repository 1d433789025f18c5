// Package store provides royalty.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/royalty-engine/royalty"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

// state holds every table behind one pointer so transactional rollback is a
// pointer swap.
type state struct {
	entries    map[royalty.TitleID][]royalty.SalesEntry
	entryTitle map[string]royalty.TitleID

	authors   map[royalty.AuthorID]royalty.Author
	titles    map[royalty.TitleID]royalty.Title
	contracts map[royalty.ContractID]royalty.Contract
	ownership map[royalty.TitleID][]royalty.OwnershipEntry

	statements    map[royalty.StatementID]royalty.Statement
	statementKeys map[string]royalty.StatementID

	runs map[string]royalty.StatementRun

	audits []royalty.AuditEntry
}

func newState() *state {
	return &state{
		entries:       make(map[royalty.TitleID][]royalty.SalesEntry),
		entryTitle:    make(map[string]royalty.TitleID),
		authors:       make(map[royalty.AuthorID]royalty.Author),
		titles:        make(map[royalty.TitleID]royalty.Title),
		contracts:     make(map[royalty.ContractID]royalty.Contract),
		ownership:     make(map[royalty.TitleID][]royalty.OwnershipEntry),
		statements:    make(map[royalty.StatementID]royalty.Statement),
		statementKeys: make(map[string]royalty.StatementID),
		runs:          make(map[string]royalty.StatementRun),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.entries {
		c.entries[k] = append([]royalty.SalesEntry{}, v...)
	}
	for k, v := range s.entryTitle {
		c.entryTitle[k] = v
	}
	for k, v := range s.authors {
		c.authors[k] = v
	}
	for k, v := range s.titles {
		c.titles[k] = cloneTitle(v)
	}
	for k, v := range s.contracts {
		c.contracts[k] = cloneContract(v)
	}
	for k, v := range s.ownership {
		c.ownership[k] = append([]royalty.OwnershipEntry{}, v...)
	}
	for k, v := range s.statements {
		c.statements[k] = v
	}
	for k, v := range s.statementKeys {
		c.statementKeys[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = cloneRun(v)
	}
	c.audits = append([]royalty.AuditEntry{}, s.audits...)
	return c
}

func cloneTitle(t royalty.Title) royalty.Title {
	prices := make(map[string]royalty.Money, len(t.ListPrices))
	for k, v := range t.ListPrices {
		prices[k] = v
	}
	t.ListPrices = prices
	return t
}

func cloneContract(c royalty.Contract) royalty.Contract {
	schedules := make(map[string]royalty.TierSchedule, len(c.Schedules))
	for k, v := range c.Schedules {
		schedules[k] = v
	}
	c.Schedules = schedules
	return c
}

func cloneRun(r royalty.StatementRun) royalty.StatementRun {
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

var (
	_ royalty.Store   = (*Memory)(nil)
	_ royalty.TxStore = (*TxMemory)(nil)
	_ royalty.Store   = (*txMemoryView)(nil)
)

// =============================================================================
// SALES STORE
// =============================================================================

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, entry royalty.SalesEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(entry)
}

// AppendBatch adds multiple entries atomically.
func (m *Memory) AppendBatch(_ context.Context, entries []royalty.SalesEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all IDs first (atomic check)
	for _, e := range entries {
		if _, dup := m.st.entryTitle[e.ID]; dup {
			return royalty.ErrDuplicateEntry
		}
	}
	for _, e := range entries {
		if err := m.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(entry royalty.SalesEntry) error {
	if _, dup := m.st.entryTitle[entry.ID]; dup {
		return royalty.ErrDuplicateEntry
	}
	list := m.st.entries[entry.TitleID]

	// Binary search for insertion point keeps the slice ordered by OccurredAt.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].OccurredAt.After(entry.OccurredAt)
	})
	list = append(list, royalty.SalesEntry{})
	copy(list[i+1:], list[i:])
	list[i] = entry
	m.st.entries[entry.TitleID] = list
	m.st.entryTitle[entry.ID] = entry.TitleID
	return nil
}

func (m *Memory) Load(_ context.Context, titleID royalty.TitleID) ([]royalty.SalesEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(titleID), nil
}

func (m *Memory) loadLocked(titleID royalty.TitleID) []royalty.SalesEntry {
	result := make([]royalty.SalesEntry, len(m.st.entries[titleID]))
	copy(result, m.st.entries[titleID])
	return result
}

func (m *Memory) LoadRange(_ context.Context, titleID royalty.TitleID, from, to time.Time) ([]royalty.SalesEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadRangeLocked(titleID, from, to), nil
}

func (m *Memory) loadRangeLocked(titleID royalty.TitleID, from, to time.Time) []royalty.SalesEntry {
	var result []royalty.SalesEntry
	for _, e := range m.st.entries[titleID] {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			result = append(result, e)
		}
	}
	return result
}

func (m *Memory) ApproveReturn(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setReturnStatusLocked(entryID, royalty.StatusApproved)
}

func (m *Memory) RejectReturn(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setReturnStatusLocked(entryID, royalty.StatusRejected)
}

func (m *Memory) setReturnStatusLocked(entryID string, status royalty.ReturnStatus) error {
	titleID, ok := m.st.entryTitle[entryID]
	if !ok {
		return fmt.Errorf("sales entry not found: %s", entryID)
	}
	list := m.st.entries[titleID]
	for i := range list {
		if list[i].ID != entryID {
			continue
		}
		if list[i].Kind != royalty.EntryReturn {
			return fmt.Errorf("entry %s is not a return", entryID)
		}
		if list[i].Status != royalty.StatusPending {
			return fmt.Errorf("return %s already %s", entryID, list[i].Status)
		}
		list[i].Status = status
		return nil
	}
	return fmt.Errorf("sales entry not found: %s", entryID)
}

func (m *Memory) Exists(_ context.Context, entryID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.st.entryTitle[entryID]
	return ok, nil
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (m *Memory) PutAuthor(_ context.Context, author royalty.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.authors[author.ID] = author
	return nil
}

func (m *Memory) GetAuthor(_ context.Context, id royalty.AuthorID) (royalty.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAuthorLocked(id)
}

func (m *Memory) getAuthorLocked(id royalty.AuthorID) (royalty.Author, error) {
	a, ok := m.st.authors[id]
	if !ok {
		return royalty.Author{}, fmt.Errorf("%w: %s", royalty.ErrAuthorNotFound, id)
	}
	return a, nil
}

func (m *Memory) ListAuthors(_ context.Context) ([]royalty.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]royalty.Author, 0, len(m.st.authors))
	for _, a := range m.st.authors {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PutTitle(_ context.Context, title royalty.Title) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.titles[title.ID] = cloneTitle(title)
	return nil
}

func (m *Memory) GetTitle(_ context.Context, id royalty.TitleID) (royalty.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTitleLocked(id)
}

func (m *Memory) getTitleLocked(id royalty.TitleID) (royalty.Title, error) {
	t, ok := m.st.titles[id]
	if !ok {
		return royalty.Title{}, fmt.Errorf("%w: %s", royalty.ErrTitleNotFound, id)
	}
	return cloneTitle(t), nil
}

func (m *Memory) ListTitles(_ context.Context) ([]royalty.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]royalty.Title, 0, len(m.st.titles))
	for _, t := range m.st.titles {
		result = append(result, cloneTitle(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) PutContract(_ context.Context, contract royalty.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putContractLocked(contract)
}

func (m *Memory) putContractLocked(contract royalty.Contract) error {
	// One contract per (author, title) pair; upsert by ID is allowed.
	for _, existing := range m.st.contracts {
		if existing.ID != contract.ID &&
			existing.AuthorID == contract.AuthorID &&
			existing.TitleID == contract.TitleID {
			return fmt.Errorf("%w for author %s on title %s",
				royalty.ErrContractExists, contract.AuthorID, contract.TitleID)
		}
	}
	m.st.contracts[contract.ID] = cloneContract(contract)
	return nil
}

func (m *Memory) GetContract(_ context.Context, id royalty.ContractID) (royalty.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getContractLocked(id)
}

func (m *Memory) getContractLocked(id royalty.ContractID) (royalty.Contract, error) {
	c, ok := m.st.contracts[id]
	if !ok {
		return royalty.Contract{}, fmt.Errorf("%w: %s", royalty.ErrContractNotFound, id)
	}
	return cloneContract(c), nil
}

func (m *Memory) ContractFor(_ context.Context, authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contractForLocked(authorID, titleID)
}

func (m *Memory) contractForLocked(authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	for _, c := range m.st.contracts {
		if c.AuthorID == authorID && c.TitleID == titleID {
			return cloneContract(c), nil
		}
	}
	return royalty.Contract{}, &royalty.ContractNotFoundError{AuthorID: authorID, TitleID: titleID}
}

func (m *Memory) ContractsForTitle(_ context.Context, titleID royalty.TitleID) ([]royalty.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contractsForTitleLocked(titleID), nil
}

func (m *Memory) contractsForTitleLocked(titleID royalty.TitleID) []royalty.Contract {
	var result []royalty.Contract
	for _, c := range m.st.contracts {
		if c.TitleID == titleID {
			result = append(result, cloneContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) SetOwnership(_ context.Context, titleID royalty.TitleID, entries []royalty.OwnershipEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.ownership[titleID] = append([]royalty.OwnershipEntry{}, entries...)
	return nil
}

func (m *Memory) OwnershipFor(_ context.Context, titleID royalty.TitleID) ([]royalty.OwnershipEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]royalty.OwnershipEntry{}, m.st.ownership[titleID]...), nil
}

// UpdateAdvanceRecouped raises a contract's cumulative recouped amount.
// Decreases are rejected: recoupment never reverses.
func (m *Memory) UpdateAdvanceRecouped(_ context.Context, id royalty.ContractID, recouped royalty.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAdvanceLocked(id, recouped)
}

func (m *Memory) updateAdvanceLocked(id royalty.ContractID, recouped royalty.Money) error {
	c, ok := m.st.contracts[id]
	if !ok {
		return fmt.Errorf("%w: %s", royalty.ErrContractNotFound, id)
	}
	if recouped.LessThan(c.AdvanceRecouped) {
		return fmt.Errorf("advance recouped for %s cannot decrease: %s -> %s",
			id, c.AdvanceRecouped.StringFixed(), recouped.StringFixed())
	}
	if recouped.GreaterThan(c.AdvancePaid) {
		return fmt.Errorf("advance recouped for %s cannot exceed advance paid %s",
			id, c.AdvancePaid.StringFixed())
	}
	c.AdvanceRecouped = recouped
	m.st.contracts[id] = c
	return nil
}

// =============================================================================
// STATEMENT STORE
// =============================================================================

func (m *Memory) PutStatement(_ context.Context, st royalty.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putStatementLocked(st)
}

func (m *Memory) putStatementLocked(st royalty.Statement) error {
	key := statementKey(st.ContractID, st.PeriodStart)
	if _, dup := m.st.statementKeys[key]; dup {
		return royalty.ErrStatementExists
	}
	m.st.statements[st.ID] = st
	m.st.statementKeys[key] = st.ID
	return nil
}

func (m *Memory) StatementsForAuthor(_ context.Context, authorID royalty.AuthorID) ([]royalty.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterStatementsLocked(func(st royalty.Statement) bool { return st.AuthorID == authorID }), nil
}

func (m *Memory) StatementsForTitle(_ context.Context, titleID royalty.TitleID) ([]royalty.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterStatementsLocked(func(st royalty.Statement) bool { return st.TitleID == titleID }), nil
}

func (m *Memory) filterStatementsLocked(keep func(royalty.Statement) bool) []royalty.Statement {
	var result []royalty.Statement
	for _, st := range m.st.statements {
		if keep(st) {
			result = append(result, st)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodStart.Equal(result[j].PeriodStart) {
			return result[i].PeriodStart.Before(result[j].PeriodStart)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) StatementExists(_ context.Context, contractID royalty.ContractID, periodStart time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.st.statementKeys[statementKey(contractID, periodStart)]
	return ok, nil
}

func statementKey(contractID royalty.ContractID, periodStart time.Time) string {
	return string(contractID) + "|" + periodStart.UTC().Format(time.RFC3339)
}

// =============================================================================
// RUN STORE
// =============================================================================

func (m *Memory) PutRun(_ context.Context, run royalty.StatementRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putRunLocked(run)
	return nil
}

func (m *Memory) putRunLocked(run royalty.StatementRun) {
	m.st.runs[run.ID] = cloneRun(run)
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]royalty.StatementRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRunsLocked(limit), nil
}

func (m *Memory) listRunsLocked(limit int) []royalty.StatementRun {
	result := make([]royalty.StatementRun, 0, len(m.st.runs))
	for _, r := range m.st.runs {
		result = append(result, cloneRun(r))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry royalty.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.audits = append(m.st.audits, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter royalty.AuditFilter) ([]royalty.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []royalty.AuditEntry
	for _, e := range m.st.audits {
		if auditMatches(e, filter) {
			result = append(result, e)
		}
	}
	return result, nil
}

func auditMatches(e royalty.AuditEntry, f royalty.AuditFilter) bool {
	if f.TitleID != nil && e.TitleID != *f.TitleID {
		return false
	}
	if f.AuthorID != nil && e.AuthorID != *f.AuthorID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Reset clears all data. Demo scenario loading only.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(royalty.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.st.clone()

	view := &txMemoryView{parent: tm.Memory}
	if err := fn(view); err != nil {
		tm.st = snapshot
		return err
	}
	return nil
}

// txMemoryView runs against the parent's state under the already-held lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Append(_ context.Context, entry royalty.SalesEntry) error {
	return tv.parent.appendLocked(entry)
}

func (tv *txMemoryView) AppendBatch(_ context.Context, entries []royalty.SalesEntry) error {
	for _, e := range entries {
		if err := tv.parent.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (tv *txMemoryView) Load(_ context.Context, titleID royalty.TitleID) ([]royalty.SalesEntry, error) {
	return tv.parent.loadLocked(titleID), nil
}

func (tv *txMemoryView) LoadRange(_ context.Context, titleID royalty.TitleID, from, to time.Time) ([]royalty.SalesEntry, error) {
	return tv.parent.loadRangeLocked(titleID, from, to), nil
}

func (tv *txMemoryView) ApproveReturn(_ context.Context, entryID string) error {
	return tv.parent.setReturnStatusLocked(entryID, royalty.StatusApproved)
}

func (tv *txMemoryView) RejectReturn(_ context.Context, entryID string) error {
	return tv.parent.setReturnStatusLocked(entryID, royalty.StatusRejected)
}

func (tv *txMemoryView) Exists(_ context.Context, entryID string) (bool, error) {
	_, ok := tv.parent.st.entryTitle[entryID]
	return ok, nil
}

func (tv *txMemoryView) PutAuthor(_ context.Context, author royalty.Author) error {
	tv.parent.st.authors[author.ID] = author
	return nil
}

func (tv *txMemoryView) GetAuthor(_ context.Context, id royalty.AuthorID) (royalty.Author, error) {
	return tv.parent.getAuthorLocked(id)
}

func (tv *txMemoryView) ListAuthors(ctx context.Context) ([]royalty.Author, error) {
	result := make([]royalty.Author, 0, len(tv.parent.st.authors))
	for _, a := range tv.parent.st.authors {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) PutTitle(_ context.Context, title royalty.Title) error {
	tv.parent.st.titles[title.ID] = cloneTitle(title)
	return nil
}

func (tv *txMemoryView) GetTitle(_ context.Context, id royalty.TitleID) (royalty.Title, error) {
	return tv.parent.getTitleLocked(id)
}

func (tv *txMemoryView) ListTitles(ctx context.Context) ([]royalty.Title, error) {
	result := make([]royalty.Title, 0, len(tv.parent.st.titles))
	for _, t := range tv.parent.st.titles {
		result = append(result, cloneTitle(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txMemoryView) PutContract(_ context.Context, contract royalty.Contract) error {
	return tv.parent.putContractLocked(contract)
}

func (tv *txMemoryView) GetContract(_ context.Context, id royalty.ContractID) (royalty.Contract, error) {
	return tv.parent.getContractLocked(id)
}

func (tv *txMemoryView) ContractFor(_ context.Context, authorID royalty.AuthorID, titleID royalty.TitleID) (royalty.Contract, error) {
	return tv.parent.contractForLocked(authorID, titleID)
}

func (tv *txMemoryView) ContractsForTitle(_ context.Context, titleID royalty.TitleID) ([]royalty.Contract, error) {
	return tv.parent.contractsForTitleLocked(titleID), nil
}

func (tv *txMemoryView) SetOwnership(_ context.Context, titleID royalty.TitleID, entries []royalty.OwnershipEntry) error {
	tv.parent.st.ownership[titleID] = append([]royalty.OwnershipEntry{}, entries...)
	return nil
}

func (tv *txMemoryView) OwnershipFor(_ context.Context, titleID royalty.TitleID) ([]royalty.OwnershipEntry, error) {
	return append([]royalty.OwnershipEntry{}, tv.parent.st.ownership[titleID]...), nil
}

func (tv *txMemoryView) UpdateAdvanceRecouped(_ context.Context, id royalty.ContractID, recouped royalty.Money) error {
	return tv.parent.updateAdvanceLocked(id, recouped)
}

func (tv *txMemoryView) PutStatement(_ context.Context, st royalty.Statement) error {
	return tv.parent.putStatementLocked(st)
}

func (tv *txMemoryView) StatementsForAuthor(_ context.Context, authorID royalty.AuthorID) ([]royalty.Statement, error) {
	return tv.parent.filterStatementsLocked(func(st royalty.Statement) bool { return st.AuthorID == authorID }), nil
}

func (tv *txMemoryView) StatementsForTitle(_ context.Context, titleID royalty.TitleID) ([]royalty.Statement, error) {
	return tv.parent.filterStatementsLocked(func(st royalty.Statement) bool { return st.TitleID == titleID }), nil
}

func (tv *txMemoryView) StatementExists(_ context.Context, contractID royalty.ContractID, periodStart time.Time) (bool, error) {
	_, ok := tv.parent.st.statementKeys[statementKey(contractID, periodStart)]
	return ok, nil
}

func (tv *txMemoryView) PutRun(_ context.Context, run royalty.StatementRun) error {
	tv.parent.putRunLocked(run)
	return nil
}

func (tv *txMemoryView) ListRuns(_ context.Context, limit int) ([]royalty.StatementRun, error) {
	return tv.parent.listRunsLocked(limit), nil
}

func (tv *txMemoryView) AppendAudit(_ context.Context, entry royalty.AuditEntry) error {
	tv.parent.st.audits = append(tv.parent.st.audits, entry)
	return nil
}

func (tv *txMemoryView) QueryAudit(_ context.Context, filter royalty.AuditFilter) ([]royalty.AuditEntry, error) {
	var result []royalty.AuditEntry
	for _, e := range tv.parent.st.audits {
		if auditMatches(e, filter) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (tv *txMemoryView) Reset(_ context.Context) error {
	tv.parent.st = newState()
	return nil
}
