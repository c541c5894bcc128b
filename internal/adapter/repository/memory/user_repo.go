package memory

import (
	"context"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Create buffers a user in tx.
func (r *UserRepository) Create(ctx context.Context, tx usecase.Transaction, user *domain.User) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}

	for _, pending := range t.users {
		if pending.Email == user.Email {
			return domain.ErrEmailAlreadyInUse
		}
	}

	r.store.mu.RLock()
	_, taken := r.store.emails[user.Email]
	r.store.mu.RUnlock()
	if taken {
		return domain.ErrEmailAlreadyInUse
	}

	t.users = append(t.users, cloneUser(user))
	return nil
}

// FindByID returns the committed user or nil.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

// FindByEmail returns the committed user or nil.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.emails[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(r.store.users[id]), nil
}
