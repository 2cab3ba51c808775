package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/pkg/errors"
	"furnimarket/pkg/logger"
)

type OrderUseCase struct {
	orderRepo   repository.OrderRepository
	bidRepo     repository.BidRepository
	reviewRepo  repository.ReviewRepository
	userRepo    repository.UserRepository
	chatUseCase *ChatUseCase
	limiter     RateLimiter
	feeRate     float64
}

func NewOrderUseCase(
	orderRepo repository.OrderRepository,
	bidRepo repository.BidRepository,
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	chatUseCase *ChatUseCase,
	limiter RateLimiter,
	feeRate float64,
) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:   orderRepo,
		bidRepo:     bidRepo,
		reviewRepo:  reviewRepo,
		userRepo:    userRepo,
		chatUseCase: chatUseCase,
		limiter:     limiter,
		feeRate:     feeRate,
	}
}

type CreateOrderInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=100"`
}

type PlaceBidInput struct {
	Price    float64 `json:"price" validate:"required,gt=0"`
	Comment  string  `json:"comment" validate:"max=2000"`
	DaysToDo int     `json:"days_to_do" validate:"gte=0"`
}

type AcceptWorkInput struct {
	Rating int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Review string `json:"review" validate:"max=5000"`
}

// CreateOrder opens a new order directly for bidding.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, userID string, input CreateOrderInput) (*entity.Order, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != entity.RoleCustomer && user.Role != entity.RoleAdmin {
		return nil, errors.Forbidden("only customers can create orders", nil)
	}

	now := time.Now()
	order := &entity.Order{
		ID:          uuid.New().String(),
		CustomerID:  userID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Status:      entity.OrderStatusBidding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	uc.logTransition(ctx, order.ID, order.Status, userID, "order opened for bidding")

	return order, nil
}

// GetOrder returns the order to its participants; while bidding it is also
// visible to masters browsing for work.
func (uc *OrderUseCase) GetOrder(ctx context.Context, userID string, orderID string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if userID == order.CustomerID || userID == order.MasterID {
		return order, nil
	}
	if order.Status == entity.OrderStatusBidding {
		return order, nil
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == entity.RoleAdmin {
		return order, nil
	}

	return nil, errors.Forbidden("you are not a participant of this order", nil)
}

func (uc *OrderUseCase) ListOrders(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Order, int64, error) {
	return uc.orderRepo.ListByUserID(ctx, userID, role, limit, offset)
}

// PlaceBid registers a master's offer on a bidding order.
func (uc *OrderUseCase) PlaceBid(ctx context.Context, userID, orderID string, input PlaceBidInput) (*entity.Bid, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != entity.RoleMaster {
		return nil, errors.Forbidden("only masters can place bids", nil)
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusBidding {
		return nil, errors.InvalidState("order is no longer accepting bids", nil)
	}

	if allowed, wait := uc.limiter.Allow(userID, "place_bid"); !allowed {
		return nil, errors.TooManyRequests("bid rate limit exceeded", wait.Seconds())
	}

	now := time.Now()
	bid := &entity.Bid{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		MasterID:  userID,
		Price:     input.Price,
		Comment:   input.Comment,
		DaysToDo:  input.DaysToDo,
		Status:    entity.BidStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.bidRepo.Create(ctx, bid); err != nil {
		return nil, err
	}

	return bid, nil
}

func (uc *OrderUseCase) ListBids(ctx context.Context, userID, orderID string) ([]*entity.Bid, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != order.CustomerID {
		return nil, errors.Forbidden("only the customer can list bids for this order", nil)
	}

	return uc.bidRepo.ListByOrderID(ctx, orderID)
}

// AcceptBid is how a master gets selected: the order moves from bidding to
// in_progress with the bid's master and price, competing bids are declined,
// and the order chat comes alive with a system announcement.
func (uc *OrderUseCase) AcceptBid(ctx context.Context, userID, orderID, bidID string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != order.CustomerID {
		return nil, errors.Forbidden("only the customer can accept a bid", nil)
	}

	bid, err := uc.bidRepo.GetByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.OrderID != orderID {
		return nil, errors.Validation("bid does not belong to this order", nil)
	}
	if bid.Status != entity.BidStatusPending {
		return nil, errors.InvalidState("bid is no longer pending", nil)
	}

	if !entity.CanTransition(order.Status, entity.OrderStatusInProgress) {
		return nil, errors.InvalidState("order is not accepting a master right now", nil)
	}

	now := time.Now()
	updated, err := uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderStatusBidding, entity.OrderStatusInProgress, func(o *entity.Order) {
		o.MasterID = bid.MasterID
		o.Price = bid.Price
		o.AssignedAt = &now
	})
	if err != nil {
		return nil, err
	}

	bid.Status = entity.BidStatusAccepted
	if err := uc.bidRepo.Update(ctx, bid); err != nil {
		logger.Warn("failed to mark bid %s accepted: %v", bid.ID, err)
	}
	uc.declineCompetingBids(ctx, orderID, bidID)

	uc.logTransition(ctx, orderID, updated.Status, userID, "bid accepted, master assigned")
	uc.chatUseCase.AnnounceOrderStatus(ctx, updated)

	return updated, nil
}

func (uc *OrderUseCase) declineCompetingBids(ctx context.Context, orderID, acceptedBidID string) {
	bids, err := uc.bidRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		logger.Warn("failed to list bids for order %s: %v", orderID, err)
		return
	}
	for _, other := range bids {
		if other.ID == acceptedBidID || other.Status != entity.BidStatusPending {
			continue
		}
		other.Status = entity.BidStatusDeclined
		if err := uc.bidRepo.Update(ctx, other); err != nil {
			logger.Warn("failed to decline bid %s: %v", other.ID, err)
		}
	}
}

// SubmitForReview moves the order from in_progress to pending_review. Only
// the assigned master may submit; a lost race surfaces as CONFLICT from the
// conditional transition.
func (uc *OrderUseCase) SubmitForReview(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != order.MasterID {
		return nil, errors.Forbidden("only the assigned master can submit work for review", nil)
	}
	if !entity.CanTransition(order.Status, entity.OrderStatusPendingReview) {
		return nil, errors.InvalidState("order cannot be submitted for review in its current status", nil)
	}

	now := time.Now()
	updated, err := uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderStatusInProgress, entity.OrderStatusPendingReview, func(o *entity.Order) {
		o.SubmittedAt = &now
	})
	if err != nil {
		return nil, err
	}

	uc.logTransition(ctx, orderID, updated.Status, userID, "work submitted for review")
	uc.chatUseCase.AnnounceOrderStatus(ctx, updated)

	return updated, nil
}

// AcceptWork completes the order. The status flip and the wallet settlement
// commit in one transaction, so of two concurrent acceptors exactly one wins
// and the master is credited exactly once. The optional review is recorded
// after the commit.
func (uc *OrderUseCase) AcceptWork(ctx context.Context, userID, orderID string, input AcceptWorkInput) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != order.CustomerID {
		return nil, errors.Forbidden("only the customer can accept the work", nil)
	}
	if !entity.CanTransition(order.Status, entity.OrderStatusCompleted) {
		return nil, errors.InvalidState("order is not awaiting review", nil)
	}
	if input.Rating != 0 && (input.Rating < 1 || input.Rating > 5) {
		return nil, errors.Validation("rating must be between 1 and 5", nil)
	}

	netAmount := order.Price * (1 - uc.feeRate)
	updated, walletTxn, err := uc.orderRepo.CompleteAndSettle(ctx, orderID, input.Rating, input.Review, netAmount)
	if err != nil {
		return nil, err
	}
	logger.Info("order %s settled: %0.2f credited to master %s (txn %s)", orderID, walletTxn.Amount, updated.MasterID, walletTxn.ID)

	if input.Rating > 0 {
		uc.recordReview(ctx, updated, input.Rating, input.Review)
	}

	uc.logTransition(ctx, orderID, updated.Status, userID, "work accepted, order completed")
	uc.chatUseCase.AnnounceOrderStatus(ctx, updated)

	return updated, nil
}

// recordReview stores the review document and folds the rating into the
// master's running average. Failures here never undo the completed order.
func (uc *OrderUseCase) recordReview(ctx context.Context, order *entity.Order, rating int, content string) {
	review := &entity.Review{
		ID:         uuid.New().String(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		MasterID:   order.MasterID,
		Rating:     rating,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	if err := uc.reviewRepo.Create(ctx, review); err != nil {
		logger.Warn("failed to record review for order %s: %v", order.ID, err)
		return
	}

	master, err := uc.userRepo.GetByID(ctx, order.MasterID)
	if err != nil {
		logger.Warn("failed to load master %s for rating update: %v", order.MasterID, err)
		return
	}
	total := master.MasterRating*float64(master.MasterReviewCount) + float64(rating)
	master.MasterReviewCount++
	master.MasterRating = total / float64(master.MasterReviewCount)
	if err := uc.userRepo.Update(ctx, master); err != nil {
		logger.Warn("failed to update master %s rating: %v", order.MasterID, err)
	}
}

// CancelOrder cancels from bidding or in_progress; completed and
// pending_review orders cannot be cancelled.
func (uc *OrderUseCase) CancelOrder(ctx context.Context, userID, orderID, reason string) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if userID != order.CustomerID {
		user, err := uc.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.Role != entity.RoleAdmin {
			return nil, errors.Forbidden("only the customer can cancel this order", nil)
		}
	}
	if !entity.CanTransition(order.Status, entity.OrderStatusCancelled) {
		return nil, errors.InvalidState("order cannot be cancelled in its current status", nil)
	}

	now := time.Now()
	updated, err := uc.orderRepo.UpdateStatus(ctx, orderID, order.Status, entity.OrderStatusCancelled, func(o *entity.Order) {
		o.CancellationReason = reason
		o.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}

	uc.logTransition(ctx, orderID, updated.Status, userID, reason)
	uc.chatUseCase.AnnounceOrderStatus(ctx, updated)

	return updated, nil
}

func (uc *OrderUseCase) logTransition(ctx context.Context, orderID, status, actorID, notes string) {
	err := uc.orderRepo.CreateLog(ctx, &entity.OrderLog{
		OrderID:   orderID,
		Status:    status,
		Notes:     notes,
		CreatedBy: actorID,
	})
	if err != nil {
		logger.Warn("failed to write order log for %s: %v", orderID, err)
	}
}
