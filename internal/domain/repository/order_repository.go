package repository

import (
	"context"

	"furnimarket/internal/domain/entity"
)

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	ListByUserID(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Order, int64, error)

	// UpdateStatus transitions the order from one status to another inside a
	// transaction. mutate runs against the freshly read order before the
	// write. When the stored status no longer equals from, the call fails
	// with a CONFLICT error and nothing is written.
	UpdateStatus(ctx context.Context, orderID, from, to string, mutate func(*entity.Order)) (*entity.Order, error)

	// CompleteAndSettle atomically moves a pending_review order to completed
	// and credits netAmount to the master's wallet, recording the wallet
	// transaction. Either everything commits or nothing does; a lost race
	// yields a CONFLICT error.
	CompleteAndSettle(ctx context.Context, orderID string, rating int, review string, netAmount float64) (*entity.Order, *entity.WalletTransaction, error)

	CreateLog(ctx context.Context, log *entity.OrderLog) error
}
