package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type WalletUseCase struct {
	walletRepo repository.WalletRepository
}

func NewWalletUseCase(walletRepo repository.WalletRepository) *WalletUseCase {
	return &WalletUseCase{
		walletRepo: walletRepo,
	}
}

// GetWallet returns the user's wallet, creating an empty one on first access.
func (uc *WalletUseCase) GetWallet(ctx context.Context, userID string) (*entity.Wallet, error) {
	wallet, err := uc.walletRepo.GetWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	now := time.Now()
	wallet = &entity.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Balance:   0,
		Currency:  "RUB",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.walletRepo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}

	return wallet, nil
}

func (uc *WalletUseCase) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*entity.WalletTransaction, int64, error) {
	return uc.walletRepo.ListTransactionsByUserID(ctx, userID, limit, offset)
}
