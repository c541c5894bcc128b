package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
)

// StatementRepository implements usecase.StatementRepository.
type StatementRepository struct {
	store *Store
}

// NewStatementRepository creates a new StatementRepository.
func NewStatementRepository(store *Store) *StatementRepository {
	return &StatementRepository{store: store}
}

// Create buffers a statement in tx. Owner and sender must exist, mirroring
// the foreign keys of the postgres schema.
func (r *StatementRepository) Create(ctx context.Context, tx usecase.Transaction, statement *domain.Statement) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}

	if !t.userExists(statement.UserID) {
		return fmt.Errorf("memory: statement %s references unknown user %s", statement.ID, statement.UserID)
	}
	if statement.SenderID != nil && !t.userExists(*statement.SenderID) {
		return fmt.Errorf("memory: statement %s references unknown sender %s", statement.ID, *statement.SenderID)
	}

	t.statements = append(t.statements, cloneStatement(statement))
	return nil
}

// FindByID retrieves a committed statement owned by ownerID.
func (r *StatementRepository) FindByID(ctx context.Context, statementID, ownerID string) (*domain.Statement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, s := range r.store.statements {
		if s.ID == statementID && s.UserID == ownerID {
			return cloneStatement(s), nil
		}
	}

	return nil, domain.ErrStatementNotFound
}

// ListForUser lists statements owned by userID visible to tx.
func (r *StatementRepository) ListForUser(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Statement, error) {
	return r.list(tx, func(s *domain.Statement) bool { return s.UserID == userID })
}

// ListSentByUser lists transfers sent by userID visible to tx.
func (r *StatementRepository) ListSentByUser(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Statement, error) {
	return r.list(tx, func(s *domain.Statement) bool { return s.IsSentBy(userID) })
}

func (r *StatementRepository) list(tx usecase.Transaction, match func(*domain.Statement) bool) ([]*domain.Statement, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	result := []*domain.Statement{}
	for _, s := range t.visibleStatements() {
		if match(s) {
			result = append(result, cloneStatement(s))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return domain.StatementLess(result[i], result[j])
	})

	return result, nil
}
