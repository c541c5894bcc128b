package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/infrastructure/postgres/generated"
	"github.com/iho/finledger/internal/usecase"
)

// StatementRepository implements usecase.StatementRepository.
type StatementRepository struct {
	queries *generated.Queries
}

// NewStatementRepository creates a new StatementRepository.
func NewStatementRepository(db generated.DBTX) *StatementRepository {
	return &StatementRepository{queries: generated.New(db)}
}

// Create inserts a statement within a transaction.
func (r *StatementRepository) Create(ctx context.Context, tx usecase.Transaction, statement *domain.Statement) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	return generated.New(pgxTx).CreateStatement(ctx, generated.CreateStatementParams{
		ID:          statement.ID,
		UserID:      statement.UserID,
		SenderID:    stringPtrToText(statement.SenderID),
		Type:        generated.OperationType(statement.Type),
		Description: statement.Description,
		Amount:      decimalToNumeric(statement.Amount),
		CreatedAt:   timeToPgTimestamptz(statement.CreatedAt),
		UpdatedAt:   timeToPgTimestamptz(statement.UpdatedAt),
	})
}

// FindByID retrieves a statement owned by ownerID.
func (r *StatementRepository) FindByID(ctx context.Context, statementID, ownerID string) (*domain.Statement, error) {
	row, err := r.queries.GetStatementForOwner(ctx, generated.GetStatementForOwnerParams{
		ID:     statementID,
		UserID: ownerID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStatementNotFound
		}
		return nil, err
	}

	return rowToStatement(row), nil
}

// ListForUser lists statements owned by userID, oldest first.
func (r *StatementRepository) ListForUser(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Statement, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := generated.New(pgxTx).ListStatementsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return rowsToStatements(rows), nil
}

// ListSentByUser lists transfers sent by userID, oldest first.
func (r *StatementRepository) ListSentByUser(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Statement, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	rows, err := generated.New(pgxTx).ListStatementsBySender(ctx, pgtype.Text{String: userID, Valid: true})
	if err != nil {
		return nil, err
	}

	return rowsToStatements(rows), nil
}

func rowsToStatements(rows []generated.Statement) []*domain.Statement {
	statements := make([]*domain.Statement, 0, len(rows))
	for _, row := range rows {
		statements = append(statements, rowToStatement(row))
	}
	return statements
}

func rowToStatement(row generated.Statement) *domain.Statement {
	return &domain.Statement{
		ID:          row.ID,
		UserID:      row.UserID,
		SenderID:    textToStringPtr(row.SenderID),
		Type:        domain.OperationType(row.Type),
		Description: row.Description,
		Amount:      numericToDecimal(row.Amount),
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
