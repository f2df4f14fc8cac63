// Package memory is an in-process repository. Transactions are serialized by
// a single mutex and rolled back by restoring a snapshot taken on entry.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

var ErrDuplicate = errors.New("duplicate key")

type state struct {
	config   *models.PlatformConfig
	matches  map[string]models.Match
	vaults   map[string]models.SessionVault
	accounts map[string]models.LedgerAccount
	entries  []models.LedgerEntry
	events   []models.EventRecord
	actions  []models.AdminAction
	alerts   []models.SystemAlert
	nextID   uint64
}

func newState() *state {
	return &state{
		matches:  map[string]models.Match{},
		vaults:   map[string]models.SessionVault{},
		accounts: map[string]models.LedgerAccount{},
	}
}

func (s *state) clone() *state {
	out := &state{
		matches:  make(map[string]models.Match, len(s.matches)),
		vaults:   make(map[string]models.SessionVault, len(s.vaults)),
		accounts: make(map[string]models.LedgerAccount, len(s.accounts)),
		entries:  append([]models.LedgerEntry(nil), s.entries...),
		events:   append([]models.EventRecord(nil), s.events...),
		actions:  append([]models.AdminAction(nil), s.actions...),
		alerts:   append([]models.SystemAlert(nil), s.alerts...),
		nextID:   s.nextID,
	}
	if s.config != nil {
		c := *s.config
		out.config = &c
	}
	for k, v := range s.matches {
		out.matches[k] = v
	}
	for k, v := range s.vaults {
		out.vaults[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	return out
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&memTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) GetPlatformConfig(ctx context.Context) (*models.PlatformConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.config == nil {
		return nil, nil
	}
	c := *s.st.config
	return &c, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.st.matches[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	return cloneMatch(m), nil
}

func (s *Store) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.filterMatches(params)
	asc := params.Asc != nil && *params.Asc
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return page(items, params.Limit, params.Offset, 100), nil
}

func (s *Store) CountMatches(ctx context.Context, params repository.ListMatchesParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filterMatches(params))), nil
}

func (s *Store) filterMatches(params repository.ListMatchesParams) []models.Match {
	out := make([]models.Match, 0, len(s.st.matches))
	for _, m := range s.st.matches {
		if params.Status != nil && *params.Status != "" && m.Status != *params.Status {
			continue
		}
		if params.Creator != nil && *params.Creator != "" && m.Creator != *params.Creator {
			continue
		}
		if params.Player != nil && *params.Player != "" {
			p := *params.Player
			if m.Creator != p && (m.Joiner == nil || *m.Joiner != p) {
				continue
			}
		}
		if params.GameID != nil && *params.GameID != "" && m.GameID != *params.GameID {
			continue
		}
		out = append(out, *cloneMatch(m))
	}
	return out
}

func (s *Store) ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range s.st.matches {
		switch m.Status {
		case models.MatchWaitingForPlayer, models.MatchInProgress, models.MatchCancelled:
		default:
			continue
		}
		if m.ExpiryTime.Before(now) {
			out = append(out, *cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryTime.Before(out[j].ExpiryTime) })
	return page(out, limit, 0, 200), nil
}

func (s *Store) ListUnarchivedMatches(ctx context.Context, params repository.ListUnarchivedParams) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range s.st.matches {
		if !m.Status.Terminal() || m.ArchivedAt != nil {
			continue
		}
		if params.MaxAttempts > 0 && m.ArchiveAttempts >= params.MaxAttempts {
			continue
		}
		if m.LastArchiveAttempt != nil && !params.RetryBefore.IsZero() && !m.LastArchiveAttempt.Before(params.RetryBefore) {
			continue
		}
		out = append(out, *cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArchiveAttempts != out[j].ArchiveAttempts {
			return out[i].ArchiveAttempts < out[j].ArchiveAttempts
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return page(out, params.Limit, 0, 100), nil
}

func (s *Store) MarkMatchesArchived(ctx context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		m, ok := s.st.matches[id]
		if !ok {
			continue
		}
		t := at
		m.ArchivedAt = &t
		s.st.matches[id] = m
	}
	return nil
}

func (s *Store) RecordArchiveFailures(ctx context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		m, ok := s.st.matches[id]
		if !ok {
			continue
		}
		t := at
		m.ArchiveAttempts++
		m.LastArchiveAttempt = &t
		s.st.matches[id] = m
	}
	return nil
}

func (s *Store) GetSessionVault(ctx context.Context, owner string) (*models.SessionVault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.vaults[strings.TrimSpace(owner)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *Store) GetLedgerBalance(ctx context.Context, address string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.accounts[strings.TrimSpace(address)].Balance, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, params repository.ListLedgerEntriesParams) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LedgerEntry, 0)
	for i := len(s.st.entries) - 1; i >= 0; i-- {
		e := s.st.entries[i]
		if params.Address != nil && *params.Address != "" && e.FromAddress != *params.Address && e.ToAddress != *params.Address {
			continue
		}
		if params.Ref != nil && *params.Ref != "" && e.Ref != *params.Ref {
			continue
		}
		out = append(out, e)
	}
	return page(out, params.Limit, params.Offset, 100), nil
}

func (s *Store) ListEventRecords(ctx context.Context, params repository.ListEventRecordsParams) ([]models.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventRecord, 0)
	for i := len(s.st.events) - 1; i >= 0; i-- {
		e := s.st.events[i]
		if params.Name != nil && *params.Name != "" && e.Name != *params.Name {
			continue
		}
		if params.Ref != nil && *params.Ref != "" && e.Ref != *params.Ref {
			continue
		}
		if params.Since != nil && e.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, e)
	}
	return page(out, params.Limit, params.Offset, 100), nil
}

func (s *Store) ListAdminActions(ctx context.Context, params repository.ListAdminActionsParams) ([]models.AdminAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AdminAction, 0)
	for i := len(s.st.actions) - 1; i >= 0; i-- {
		a := s.st.actions[i]
		if params.Action != nil && *params.Action != "" && a.Action != *params.Action {
			continue
		}
		out = append(out, a)
	}
	return page(out, params.Limit, params.Offset, 100), nil
}

func (s *Store) ListSystemAlerts(ctx context.Context, params repository.ListSystemAlertsParams) ([]models.SystemAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SystemAlert, 0)
	for i := len(s.st.alerts) - 1; i >= 0; i-- {
		a := s.st.alerts[i]
		if params.Level != nil && *params.Level != "" && a.Level != *params.Level {
			continue
		}
		if params.Acknowledged != nil && a.Acknowledged != *params.Acknowledged {
			continue
		}
		out = append(out, a)
	}
	return page(out, params.Limit, params.Offset, 20), nil
}

func (s *Store) AcknowledgeSystemAlert(ctx context.Context, id string, by string, at time.Time) (*models.SystemAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.alerts {
		if s.st.alerts[i].ID != id {
			continue
		}
		a := &s.st.alerts[i]
		if !a.Acknowledged {
			who, when := by, at
			a.Acknowledged = true
			a.AcknowledgedBy = &who
			a.AcknowledgedAt = &when
		}
		out := *a
		return &out, nil
	}
	return nil, nil
}

func (s *Store) GetPlatformStats(ctx context.Context) (repository.PlatformStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out repository.PlatformStats
	for _, m := range s.st.matches {
		switch m.Status {
		case models.MatchWaitingForPlayer, models.MatchInProgress, models.MatchCancelled:
			out.OpenMatches++
		case models.MatchCompleted:
			out.CompletedMatches++
			out.PlatformRevenue += m.TreasuryFee + m.ReferralFee
			out.ResidualHeld += m.Residual
		case models.MatchRefunded:
			out.RefundedMatches++
		}
	}
	for _, v := range s.st.vaults {
		if v.Balance > 0 {
			out.ActiveVaults++
		}
		out.TotalVaultBalance += v.Balance
	}
	return out, nil
}

// memTx operates directly on the live state; Store.InTx holds the lock and
// restores the snapshot on failure.
type memTx struct {
	st *state
}

func (t *memTx) GetPlatformConfigForUpdate(ctx context.Context) (*models.PlatformConfig, error) {
	if t.st.config == nil {
		return nil, nil
	}
	c := *t.st.config
	return &c, nil
}

func (t *memTx) SavePlatformConfig(ctx context.Context, item *models.PlatformConfig) error {
	c := *item
	c.Key = models.PlatformConfigKey
	t.st.config = &c
	return nil
}

func (t *memTx) GetMatchForUpdate(ctx context.Context, id string) (*models.Match, error) {
	m, ok := t.st.matches[id]
	if !ok {
		return nil, nil
	}
	return cloneMatch(m), nil
}

func (t *memTx) InsertMatch(ctx context.Context, item *models.Match) error {
	if _, ok := t.st.matches[item.ID]; ok {
		return fmt.Errorf("%w: match %s", ErrDuplicate, item.ID)
	}
	t.st.matches[item.ID] = *cloneMatch(*item)
	return nil
}

func (t *memTx) SaveMatch(ctx context.Context, item *models.Match) error {
	t.st.matches[item.ID] = *cloneMatch(*item)
	return nil
}

func (t *memTx) GetSessionVaultForUpdate(ctx context.Context, owner string) (*models.SessionVault, error) {
	v, ok := t.st.vaults[owner]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (t *memTx) InsertSessionVault(ctx context.Context, item *models.SessionVault) error {
	if _, ok := t.st.vaults[item.Owner]; ok {
		return fmt.Errorf("%w: vault %s", ErrDuplicate, item.Owner)
	}
	t.st.vaults[item.Owner] = *item
	return nil
}

func (t *memTx) SaveSessionVault(ctx context.Context, item *models.SessionVault) error {
	t.st.vaults[item.Owner] = *item
	return nil
}

func (t *memTx) LockLedgerAccount(ctx context.Context, address string) (*models.LedgerAccount, error) {
	a, ok := t.st.accounts[address]
	if !ok {
		a = models.LedgerAccount{Address: address}
		t.st.accounts[address] = a
	}
	return &a, nil
}

func (t *memTx) SaveLedgerAccount(ctx context.Context, item *models.LedgerAccount) error {
	item.UpdatedAt = time.Now().UTC()
	t.st.accounts[item.Address] = *item
	return nil
}

func (t *memTx) InsertLedgerEntry(ctx context.Context, item *models.LedgerEntry) error {
	t.st.nextID++
	item.ID = t.st.nextID
	t.st.entries = append(t.st.entries, *item)
	return nil
}

func (t *memTx) InsertEventRecord(ctx context.Context, item *models.EventRecord) error {
	t.st.events = append(t.st.events, *item)
	return nil
}

func (t *memTx) InsertAdminAction(ctx context.Context, item *models.AdminAction) error {
	t.st.actions = append(t.st.actions, *item)
	return nil
}

func (t *memTx) InsertSystemAlert(ctx context.Context, item *models.SystemAlert) error {
	t.st.alerts = append(t.st.alerts, *item)
	return nil
}

func cloneMatch(m models.Match) *models.Match {
	out := m
	out.Joiner = cloneString(m.Joiner)
	out.JoinerFunding = cloneString(m.JoinerFunding)
	out.Winner = cloneString(m.Winner)
	out.ResultHash = cloneString(m.ResultHash)
	out.SettledAt = cloneTime(m.SettledAt)
	out.ArchivedAt = cloneTime(m.ArchivedAt)
	out.LastArchiveAttempt = cloneTime(m.LastArchiveAttempt)
	return &out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
