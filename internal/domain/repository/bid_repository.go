package repository

import (
	"context"

	"furnimarket/internal/domain/entity"
)

type BidRepository interface {
	Create(ctx context.Context, bid *entity.Bid) error
	GetByID(ctx context.Context, id string) (*entity.Bid, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*entity.Bid, error)
	Update(ctx context.Context, bid *entity.Bid) error
}
