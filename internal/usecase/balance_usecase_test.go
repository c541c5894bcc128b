package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/usecase"
	"github.com/iho/finledger/internal/usecase/mocks"
)

func TestBalanceUseCase_GetBalance(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	alice := "alice"
	owned := []*domain.Statement{
		{ID: "01", UserID: alice, Type: domain.OperationDeposit, Amount: decimal.NewFromInt(100), CreatedAt: at},
	}
	sent := []*domain.Statement{
		{ID: "02", UserID: "bob", SenderID: &alice, Type: domain.OperationTransfer, Amount: decimal.NewFromInt(40), CreatedAt: at.Add(time.Minute)},
	}

	t.Run("reads both scans in one snapshot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		txManager := mocks.NewMockTransactionManager(ctrl)
		tx := mocks.NewMockTransaction(ctrl)
		userRepo := mocks.NewMockUserRepository(ctrl)
		statementRepo := mocks.NewMockStatementRepository(ctrl)

		userRepo.EXPECT().FindByID(gomock.Any(), alice).Return(&domain.User{ID: alice}, nil)
		txManager.EXPECT().BeginSnapshot(gomock.Any()).Return(tx, nil)
		statementRepo.EXPECT().ListForUser(gomock.Any(), tx, alice).Return(owned, nil)
		statementRepo.EXPECT().ListSentByUser(gomock.Any(), tx, alice).Return(sent, nil)
		tx.EXPECT().Commit(gomock.Any()).Return(nil)
		tx.EXPECT().Rollback(gomock.Any()).Return(nil)

		uc := usecase.NewBalanceUseCase(txManager, userRepo, statementRepo)
		balance, err := uc.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: alice, WithStatement: true})

		require.NoError(t, err)
		assert.True(t, balance.Amount.Equal(decimal.NewFromInt(60)))
		require.Len(t, balance.Statements, 2)
		assert.Equal(t, "01", balance.Statements[0].ID)
		assert.Equal(t, "02", balance.Statements[1].ID)
	})

	t.Run("unknown user opens no transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		userRepo := mocks.NewMockUserRepository(ctrl)
		userRepo.EXPECT().FindByID(gomock.Any(), "ghost").Return(nil, nil)

		uc := usecase.NewBalanceUseCase(mocks.NewMockTransactionManager(ctrl), userRepo, mocks.NewMockStatementRepository(ctrl))
		_, err := uc.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: "ghost"})

		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("scan failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		txManager := mocks.NewMockTransactionManager(ctrl)
		tx := mocks.NewMockTransaction(ctrl)
		userRepo := mocks.NewMockUserRepository(ctrl)
		statementRepo := mocks.NewMockStatementRepository(ctrl)
		scanErr := errors.New("canceling statement due to user request")

		userRepo.EXPECT().FindByID(gomock.Any(), alice).Return(&domain.User{ID: alice}, nil)
		txManager.EXPECT().BeginSnapshot(gomock.Any()).Return(tx, nil)
		statementRepo.EXPECT().ListForUser(gomock.Any(), tx, alice).Return(owned, nil)
		statementRepo.EXPECT().ListSentByUser(gomock.Any(), tx, alice).Return(nil, scanErr)
		tx.EXPECT().Rollback(gomock.Any()).Return(nil)

		uc := usecase.NewBalanceUseCase(txManager, userRepo, statementRepo)
		_, err := uc.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: alice})

		assert.ErrorIs(t, err, scanErr)
	})
}

func TestBalanceUseCase_BalanceOfSkipsUserCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := mocks.NewMockTransaction(ctrl)
	statementRepo := mocks.NewMockStatementRepository(ctrl)

	statementRepo.EXPECT().ListForUser(gomock.Any(), tx, "ghost").Return(nil, nil)
	statementRepo.EXPECT().ListSentByUser(gomock.Any(), tx, "ghost").Return(nil, nil)

	uc := usecase.NewBalanceUseCase(mocks.NewMockTransactionManager(ctrl), mocks.NewMockUserRepository(ctrl), statementRepo)
	balance, err := uc.BalanceOf(context.Background(), tx, "ghost")

	require.NoError(t, err)
	assert.True(t, balance.Amount.IsZero())
	assert.Nil(t, balance.Statements)
}
