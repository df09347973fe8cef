// Package memory provides process-local implementations of the repository
// interfaces. The API falls back to it when no Postgres DSN is configured and
// tests use it in place of a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/release-queue/internal/domain"
	"github.com/spec-kit/release-queue/internal/repository"
)

// Store holds every entity behind one mutex, so each call is atomic the way
// a single transaction would be.
type Store struct {
	mu      sync.Mutex
	users   map[string]domain.User
	queues  map[string]domain.Queue
	entries []domain.QueueEntry
	ledger  []domain.LedgerEntry
	freezes []domain.CodeFreeze
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		queues: make(map[string]domain.Queue),
	}
}

var (
	_ repository.UserRepository       = (*Store)(nil)
	_ repository.QueueRepository      = (*Store)(nil)
	_ repository.LedgerRepository     = ledgerView{}
	_ repository.FreezeRepository     = freezeView{}
	_ repository.IdentifierRepository = (*Store)(nil)
)

// Ledger exposes the store as a LedgerRepository.
func (s *Store) Ledger() repository.LedgerRepository { return ledgerView{s} }

// Freezes exposes the store as a FreezeRepository.
func (s *Store) Freezes() repository.FreezeRepository { return freezeView{s} }

// Users.

func (s *Store) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.ID == user.ID {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Store) SetAdmin(_ context.Context, email string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, user := range s.users {
		if user.Email == email {
			user.IsAdmin = admin
			s.users[id] = user
			return nil
		}
	}
	return pgx.ErrNoRows
}

// Identifiers.

func (s *Store) IdentifierExists(_ context.Context, scope domain.IDScope, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch scope {
	case domain.IDScopeUsers:
		_, ok := s.users[id]
		return ok, nil
	case domain.IDScopeLedger:
		for _, row := range s.ledger {
			if row.ID == id {
				return true, nil
			}
		}
	case domain.IDScopeFreezes:
		for _, row := range s.freezes {
			if row.ID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// Queues.

func (s *Store) CreateQueue(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[name]; ok {
		return repository.ErrDuplicate
	}
	s.queues[name] = domain.Queue{Name: name, CreatedAt: time.Now()}
	return nil
}

func (s *Store) ListQueueNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) QueueExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queues[name]
	return ok, nil
}

func (s *Store) Enter(_ context.Context, entry *domain.QueueEntry, ledger *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, existing := range s.entries {
		if existing.QueueName == entry.QueueName {
			count++
		}
		if existing.ID == entry.ID {
			return repository.ErrDuplicate
		}
	}
	entry.Position = count + 1
	s.entries = append(s.entries, *entry)
	s.ledger = append(s.ledger, *ledger)
	return nil
}

func (s *Store) Exit(_ context.Context, queue, ticket string, closedAt time.Time) (repository.ExitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result repository.ExitResult
	kept := s.entries[:0:0]
	for _, entry := range s.entries {
		if entry.QueueName == queue && entry.Ticket == ticket {
			result.Removed++
			continue
		}
		kept = append(kept, entry)
	}
	if result.Removed == 0 {
		return repository.ExitResult{}, pgx.ErrNoRows
	}
	s.entries = kept

	for i := range s.ledger {
		row := &s.ledger[i]
		if row.Component == queue && row.Ticket == ticket && row.Active {
			closed := closedAt
			row.Active = false
			row.ClosedAt = &closed
			result.Closed++
		}
	}
	return result, nil
}

func (s *Store) ListEntries(_ context.Context, queue string) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.QueueEntry
	for _, entry := range s.entries {
		if entry.QueueName == queue {
			result = append(result, entry)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result, nil
}

type ledgerView struct{ s *Store }

func (v ledgerView) List(_ context.Context, filter repository.LedgerFilter) ([]domain.LedgerEntry, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var result []domain.LedgerEntry
	for _, row := range v.s.ledger {
		if filter.OpenedSince != nil && row.OpenedAt.Before(*filter.OpenedSince) {
			continue
		}
		result = append(result, row)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if filter.SortByComponent && result[i].Component != result[j].Component {
			return result[i].Component < result[j].Component
		}
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result, nil
}

type freezeView struct{ s *Store }

func (v freezeView) Create(_ context.Context, freeze *domain.CodeFreeze) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.freezes {
		if existing.ID == freeze.ID {
			return repository.ErrDuplicate
		}
	}
	v.s.freezes = append(v.s.freezes, *freeze)
	return nil
}

func (v freezeView) CountActive(_ context.Context, day time.Time) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	count := 0
	for _, freeze := range v.s.freezes {
		if freeze.ActiveOn(day) {
			count++
		}
	}
	return count, nil
}

func (v freezeView) EndAllInEffect(_ context.Context) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var changed int64
	for i := range v.s.freezes {
		if v.s.freezes[i].InEffect {
			v.s.freezes[i].InEffect = false
			changed++
		}
	}
	return changed, nil
}

func (v freezeView) ExpireEnded(_ context.Context, day time.Time) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	day = domain.Day(day)
	var changed int64
	for i := range v.s.freezes {
		f := &v.s.freezes[i]
		if f.InEffect && domain.Day(f.Ends).Before(day) {
			f.InEffect = false
			changed++
		}
	}
	return changed, nil
}

func (v freezeView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i, freeze := range v.s.freezes {
		if freeze.ID == id {
			v.s.freezes = append(v.s.freezes[:i], v.s.freezes[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (v freezeView) List(_ context.Context) ([]domain.CodeFreeze, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return append([]domain.CodeFreeze(nil), v.s.freezes...), nil
}
