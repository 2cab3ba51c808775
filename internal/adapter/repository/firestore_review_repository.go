package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type firestoreReviewRepository struct {
	client *firestore.Client
}

func NewFirestoreReviewRepository(client *firestore.Client) repository.ReviewRepository {
	return &firestoreReviewRepository{
		client: client,
	}
}

func (r *firestoreReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	_, err := r.client.Collection("reviews").Doc(review.ID).Set(ctx, review)
	if err != nil {
		return errors.Internal("failed to create review", err)
	}
	return nil
}

func (r *firestoreReviewRepository) ListByMasterID(ctx context.Context, masterID string, limit, offset int) ([]*entity.Review, int64, error) {
	query := r.client.Collection("reviews").Where("masterId", "==", masterID)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("failed to count reviews", err)
	}
	total := int64(len(countDocs))

	iter := query.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)

	reviews := make([]*entity.Review, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("failed to list reviews", err)
		}

		var review entity.Review
		if err := doc.DataTo(&review); err != nil {
			return nil, 0, errors.Internal("failed to parse review data", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, total, nil
}
