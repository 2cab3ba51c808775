package repository

import (
	"context"

	"furnimarket/internal/domain/entity"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	ListByMasterID(ctx context.Context, masterID string, limit, offset int) ([]*entity.Review, int64, error)
}
