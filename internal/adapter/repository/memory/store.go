// Package memory is the in-process storage driver. It keeps committed state in
// a Store and buffers writes in a Tx until Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

var (
	// ErrTxClosed is returned when a finished transaction is used again.
	ErrTxClosed = errors.New("memory: transaction already closed")
	// ErrReadOnlyTx is returned when a snapshot transaction is asked to write.
	ErrReadOnlyTx = errors.New("memory: write in read-only transaction")
	// ErrForeignTx is returned when a transaction from another driver is passed in.
	ErrForeignTx = errors.New("memory: transaction not created by this store")
)

// Store holds committed ledger state.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	userIDs    []string
	emails     map[string]string
	statements []*domain.Statement
	events     []*domain.OutboxEvent
	locks      *keyedMutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]*domain.User),
		emails: make(map[string]string),
		locks:  newKeyedMutex(),
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a read-write transaction. Its reads observe the latest
// committed state.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{store: m.store, horizon: -1, userHorizon: -1}, nil
}

// BeginSnapshot starts a read-only transaction pinned to the statements and
// users committed so far. Both are append-only, so their counts are the snapshot.
func (m *TxManager) BeginSnapshot(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.mu.RLock()
	horizon := len(m.store.statements)
	userHorizon := len(m.store.userIDs)
	m.store.mu.RUnlock()

	return &Tx{store: m.store, horizon: horizon, userHorizon: userHorizon, readOnly: true}, nil
}

// Tx buffers writes until Commit.
type Tx struct {
	store      *Store
	statements []*domain.Statement
	users      []*domain.User
	events     []*domain.OutboxEvent
	held        []string
	horizon     int
	userHorizon int
	readOnly    bool
	done        bool
}

// Commit applies buffered writes and releases held locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true
	defer t.release()

	if t.readOnly {
		return nil
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range t.users {
		if _, taken := s.emails[u.Email]; taken {
			return domain.ErrEmailAlreadyInUse
		}
	}

	for _, u := range t.users {
		s.users[u.ID] = u
		s.userIDs = append(s.userIDs, u.ID)
		s.emails[u.Email] = u.ID
	}
	s.statements = append(s.statements, t.statements...)
	s.events = append(s.events, t.events...)

	return nil
}

// Rollback discards buffered writes and releases held locks. Rolling back a
// finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()

	return nil
}

func (t *Tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.locks.unlock(t.held[i])
	}
	t.held = nil
}

func (t *Tx) writable() error {
	if t.done {
		return ErrTxClosed
	}
	if t.readOnly {
		return ErrReadOnlyTx
	}
	return nil
}

// visibleStatements returns committed statements up to the snapshot horizon
// followed by the transaction's own pending statements.
func (t *Tx) visibleStatements() []*domain.Statement {
	t.store.mu.RLock()
	committed := t.store.statements
	if t.horizon >= 0 && t.horizon < len(committed) {
		committed = committed[:t.horizon]
	}
	visible := make([]*domain.Statement, 0, len(committed)+len(t.statements))
	visible = append(visible, committed...)
	t.store.mu.RUnlock()

	return append(visible, t.statements...)
}

// visibleUserIDs returns the IDs of users committed up to the snapshot horizon.
func (t *Tx) visibleUserIDs() []string {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	committed := t.store.userIDs
	if t.userHorizon >= 0 && t.userHorizon < len(committed) {
		committed = committed[:t.userHorizon]
	}
	return append([]string(nil), committed...)
}

func (t *Tx) userExists(id string) bool {
	for _, u := range t.users {
		if u.ID == id {
			return true
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	_, ok := t.store.users[id]
	return ok
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignTx, tx)
	}
	if t.done {
		return nil, ErrTxClosed
	}
	return t, nil
}

// Locker implements usecase.Locker with one mutex per key.
type Locker struct {
	store *Store
}

// NewLocker creates a new Locker.
func NewLocker(store *Store) *Locker {
	return &Locker{store: store}
}

// Lock blocks until key is free or ctx is done. The lock is held until tx
// commits or rolls back.
func (l *Locker) Lock(ctx context.Context, tx usecase.Transaction, key string) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := l.store.locks.lock(ctx, key); err != nil {
		return err
	}

	t.held = append(t.held, key)
	return nil
}

// keyedMutex hands out one lock per key. A slot lives only while some caller
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{slots: make(map[string]*lockSlot)}
}

func (k *keyedMutex) acquire(key string) *lockSlot {
	k.mu.Lock()
	defer k.mu.Unlock()

	slot, ok := k.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	return slot
}

// forget drops one reference. Callers hold k.mu.
func (k *keyedMutex) forget(key string, slot *lockSlot) {
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *keyedMutex) lock(ctx context.Context, key string) error {
	slot := k.acquire(key)

	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		k.forget(key, slot)
		k.mu.Unlock()
		return ctx.Err()
	}
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	slot, ok := k.slots[key]
	if !ok {
		return
	}
	<-slot.ch
	k.forget(key, slot)
}

func cloneStatement(s *domain.Statement) *domain.Statement {
	c := *s
	if s.SenderID != nil {
		sender := *s.SenderID
		c.SenderID = &sender
	}
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	c := *e
	if e.Payload != nil {
		c.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			c.Payload[k] = v
		}
	}
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		c.PublishedAt = &at
	}
	return &c
}
