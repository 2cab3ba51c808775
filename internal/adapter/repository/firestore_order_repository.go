package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
)

type firestoreOrderRepository struct {
	client *firestore.Client
}

func NewFirestoreOrderRepository(client *firestore.Client) repository.OrderRepository {
	return &firestoreOrderRepository{
		client: client,
	}
}

func (r *firestoreOrderRepository) Create(ctx context.Context, order *entity.Order) error {
	_, err := r.client.Collection("orders").Doc(order.ID).Set(ctx, order)
	if err != nil {
		return errors.Internal("failed to create order", err)
	}
	return nil
}

func (r *firestoreOrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	doc, err := r.client.Collection("orders").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Order", err)
		}
		return nil, errors.Internal("failed to get order", err)
	}

	var order entity.Order
	if err := doc.DataTo(&order); err != nil {
		return nil, errors.Internal("failed to parse order data", err)
	}

	return &order, nil
}

func (r *firestoreOrderRepository) ListByUserID(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Order, int64, error) {
	field := "customerId"
	if role == entity.RoleMaster {
		field = "masterId"
	}

	query := r.client.Collection("orders").Where(field, "==", userID)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("failed to count orders", err)
	}
	total := int64(len(countDocs))

	iter := query.OrderBy("createdAt", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)

	orders := make([]*entity.Order, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("failed to list orders", err)
		}

		var order entity.Order
		if err := doc.DataTo(&order); err != nil {
			return nil, 0, errors.Internal("failed to parse order data", err)
		}
		orders = append(orders, &order)
	}

	return orders, total, nil
}

// UpdateStatus performs a conditional transition: the write only happens when
// the stored status still equals from. A lost race surfaces as CONFLICT so
// the caller can tell "somebody else won" apart from "not allowed".
func (r *firestoreOrderRepository) UpdateStatus(ctx context.Context, orderID, from, to string, mutate func(*entity.Order)) (*entity.Order, error) {
	docRef := r.client.Collection("orders").Doc(orderID)

	var result entity.Order
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var order entity.Order
		if err := doc.DataTo(&order); err != nil {
			return err
		}

		if order.Status != from {
			return errors.Conflict("order status changed concurrently")
		}

		if mutate != nil {
			mutate(&order)
		}
		order.Status = to
		order.UpdatedAt = time.Now()

		result = order
		return tx.Set(docRef, &order)
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Order", err)
		}
		return nil, errors.Internal("failed to update order status", err)
	}

	return &result, nil
}

// CompleteAndSettle flips a pending_review order to completed and credits the
// master's wallet in one transaction. Concurrent acceptors race on the order
// document, so exactly one settlement can ever commit per order.
func (r *firestoreOrderRepository) CompleteAndSettle(ctx context.Context, orderID string, rating int, review string, netAmount float64) (*entity.Order, *entity.WalletTransaction, error) {
	orderRef := r.client.Collection("orders").Doc(orderID)

	var resultOrder entity.Order
	var resultTxn entity.WalletTransaction
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(orderRef)
		if err != nil {
			return err
		}

		var order entity.Order
		if err := doc.DataTo(&order); err != nil {
			return err
		}

		if order.Status != entity.OrderStatusPendingReview {
			return errors.Conflict("order is not awaiting review")
		}

		// All reads must precede writes inside a Firestore transaction.
		walletQuery := r.client.Collection("wallets").Where("userId", "==", order.MasterID).Limit(1)
		walletDoc, err := tx.Documents(walletQuery).Next()

		now := time.Now()
		var wallet entity.Wallet
		var walletRef *firestore.DocumentRef
		walletExists := true
		if err == iterator.Done {
			walletExists = false
			wallet = entity.Wallet{
				ID:        uuid.New().String(),
				UserID:    order.MasterID,
				Balance:   0,
				Currency:  "RUB",
				Status:    "active",
				CreatedAt: now,
			}
			walletRef = r.client.Collection("wallets").Doc(wallet.ID)
		} else if err != nil {
			return err
		} else {
			if err := walletDoc.DataTo(&wallet); err != nil {
				return err
			}
			walletRef = walletDoc.Ref
		}

		order.Status = entity.OrderStatusCompleted
		order.Rating = rating
		order.Review = review
		order.CompletedAt = &now
		order.UpdatedAt = now

		walletTxn := entity.WalletTransaction{
			ID:              uuid.New().String(),
			WalletID:        wallet.ID,
			UserID:          order.MasterID,
			Type:            entity.WalletTxnTypeSettlement,
			Amount:          netAmount,
			PreviousBalance: wallet.Balance,
			NewBalance:      wallet.Balance + netAmount,
			Reference:       order.ID,
			Description:     "Settlement for order " + order.Title,
			CreatedAt:       now,
		}

		wallet.Balance += netAmount
		wallet.LastTxnAt = now
		wallet.UpdatedAt = now

		if err := tx.Set(orderRef, &order); err != nil {
			return err
		}
		if walletExists {
			if err := tx.Set(walletRef, &wallet); err != nil {
				return err
			}
		} else {
			if err := tx.Create(walletRef, &wallet); err != nil {
				return err
			}
		}
		txnRef := r.client.Collection("wallet_transactions").Doc(walletTxn.ID)
		if err := tx.Create(txnRef, &walletTxn); err != nil {
			return err
		}

		resultOrder = order
		resultTxn = walletTxn
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, nil, appErr
		}
		if status.Code(err) == codes.NotFound {
			return nil, nil, errors.NotFound("Order", err)
		}
		return nil, nil, errors.Internal("failed to complete and settle order", err)
	}

	return &resultOrder, &resultTxn, nil
}

func (r *firestoreOrderRepository) CreateLog(ctx context.Context, log *entity.OrderLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = time.Now()
	_, err := r.client.Collection("order_logs").Doc(log.ID).Set(ctx, log)
	if err != nil {
		return errors.Internal("failed to create order log", err)
	}
	return nil
}
