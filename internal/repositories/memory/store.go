// Package memory provides a thread-safe, in-memory implementation of
// repositories.Repository. It is the default store when no database is
// configured and the store used by the service tests.
//
// Transactions are copy-on-write: a transaction works on a private copy of
// the tables and publishes it with a single pointer swap on success, so
// readers always observe the state as of the last committed transaction and
// a failed transaction leaves no trace.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

var ErrClosed = errors.New("memory store closed")

type tables struct {
	users   map[string]*models.User
	courses []*models.Course // courses[id-1]
	exams   map[uint][]*models.Exam
}

func newTables() *tables {
	return &tables{
		users: make(map[string]*models.User),
		exams: make(map[uint][]*models.Exam),
	}
}

// clone copies the containers. Stored records are never mutated in place, so
// they can be shared between versions.
func (t *tables) clone() *tables {
	c := &tables{
		users:   make(map[string]*models.User, len(t.users)),
		courses: make([]*models.Course, len(t.courses)),
		exams:   make(map[uint][]*models.Exam, len(t.exams)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	copy(c.courses, t.courses)
	for k, v := range t.exams {
		c.exams[k] = v
	}
	return c
}

type Store struct {
	mu        sync.RWMutex
	committed *tables
	closed    bool

	txMu sync.Mutex // one writer at a time
}

func New() *Store {
	return &Store{committed: newTables()}
}

// view is a Repository over either the committed tables or a transaction's
// private copy.
type view struct {
	store *Store
	tx    *tables
}

// Repository returns the committed-state repository.
func (s *Store) Repository() repositories.Repository {
	return &view{store: s}
}

func (s *Store) begin() (*tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.committed.clone(), nil
}

func (s *Store) commit(t *tables) {
	s.mu.Lock()
	s.committed = t
	s.mu.Unlock()
}

func (v *view) read(fn func(t *tables)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	fn(v.store.committed)
}

// write applies fn inside the current transaction, or in a transaction of
// its own when called on the committed view.
func (v *view) write(ctx context.Context, fn func(t *tables) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	return v.WithTransaction(ctx, func(r repositories.Repository) error {
		return fn(r.(*view).tx)
	})
}

func (v *view) User() repositories.UserRepository     { return &userRepository{v} }
func (v *view) Course() repositories.CourseRepository { return &courseRepository{v} }
func (v *view) Exam() repositories.ExamRepository     { return &examRepository{v} }

func (v *view) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if v.tx != nil {
		return fn(v)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	v.store.txMu.Lock()
	defer v.store.txMu.Unlock()

	t, err := v.store.begin()
	if err != nil {
		return err
	}
	if err := fn(&view{store: v.store, tx: t}); err != nil {
		return err
	}
	v.store.commit(t)
	return nil
}

func (v *view) Ping(ctx context.Context) error {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	if v.store.closed {
		return ErrClosed
	}
	return nil
}

func (v *view) Close() error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.closed = true
	return nil
}
