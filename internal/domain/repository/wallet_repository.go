package repository

import (
	"context"

	"furnimarket/internal/domain/entity"
)

type WalletRepository interface {
	CreateWallet(ctx context.Context, wallet *entity.Wallet) error
	GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error)
	ListTransactionsByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.WalletTransaction, int64, error)
}
