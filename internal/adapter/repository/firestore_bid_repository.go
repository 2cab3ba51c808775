package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type firestoreBidRepository struct {
	client *firestore.Client
}

func NewFirestoreBidRepository(client *firestore.Client) repository.BidRepository {
	return &firestoreBidRepository{
		client: client,
	}
}

func (r *firestoreBidRepository) Create(ctx context.Context, bid *entity.Bid) error {
	_, err := r.client.Collection("bids").Doc(bid.ID).Set(ctx, bid)
	if err != nil {
		return errors.Internal("failed to create bid", err)
	}
	return nil
}

func (r *firestoreBidRepository) GetByID(ctx context.Context, id string) (*entity.Bid, error) {
	doc, err := r.client.Collection("bids").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Bid", err)
		}
		return nil, errors.Internal("failed to get bid", err)
	}

	var bid entity.Bid
	if err := doc.DataTo(&bid); err != nil {
		return nil, errors.Internal("failed to parse bid data", err)
	}

	return &bid, nil
}

func (r *firestoreBidRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.Bid, error) {
	iter := r.client.Collection("bids").
		Where("orderId", "==", orderID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)

	bids := make([]*entity.Bid, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("failed to list bids", err)
		}

		var bid entity.Bid
		if err := doc.DataTo(&bid); err != nil {
			return nil, errors.Internal("failed to parse bid data", err)
		}
		bids = append(bids, &bid)
	}

	return bids, nil
}

func (r *firestoreBidRepository) Update(ctx context.Context, bid *entity.Bid) error {
	bid.UpdatedAt = time.Now()
	_, err := r.client.Collection("bids").Doc(bid.ID).Set(ctx, bid)
	if err != nil {
		return errors.Internal("failed to update bid", err)
	}
	return nil
}
