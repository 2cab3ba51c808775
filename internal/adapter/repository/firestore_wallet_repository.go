package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type firestoreWalletRepository struct {
	client *firestore.Client
}

func NewFirestoreWalletRepository(client *firestore.Client) repository.WalletRepository {
	return &firestoreWalletRepository{
		client: client,
	}
}

func (r *firestoreWalletRepository) CreateWallet(ctx context.Context, wallet *entity.Wallet) error {
	_, err := r.client.Collection("wallets").Doc(wallet.ID).Set(ctx, wallet)
	if err != nil {
		return errors.Internal("failed to create wallet", err)
	}
	return nil
}

func (r *firestoreWalletRepository) GetWalletByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	query := r.client.Collection("wallets").Where("userId", "==", userID).Limit(1)
	doc, err := query.Documents(ctx).Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Wallet", err)
	}
	if err != nil {
		return nil, errors.Internal("failed to get wallet", err)
	}

	var wallet entity.Wallet
	if err := doc.DataTo(&wallet); err != nil {
		return nil, errors.Internal("failed to parse wallet data", err)
	}

	return &wallet, nil
}

func (r *firestoreWalletRepository) ListTransactionsByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.WalletTransaction, int64, error) {
	query := r.client.Collection("wallet_transactions").Where("userId", "==", userID)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("failed to count wallet transactions", err)
	}
	total := int64(len(countDocs))

	iter := query.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)

	txns := make([]*entity.WalletTransaction, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("failed to list wallet transactions", err)
		}

		var txn entity.WalletTransaction
		if err := doc.DataTo(&txn); err != nil {
			return nil, 0, errors.Internal("failed to parse wallet transaction data", err)
		}
		txns = append(txns, &txn)
	}

	return txns, total, nil
}
