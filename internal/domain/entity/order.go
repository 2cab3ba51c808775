package entity

import (
	"time"
)

// Order statuses. An order moves bidding -> in_progress -> pending_review ->
// completed; cancelled is reachable from bidding or in_progress only.
const (
	OrderStatusDraft         = "draft"
	OrderStatusBidding       = "bidding"
	OrderStatusInProgress    = "in_progress"
	OrderStatusPendingReview = "pending_review"
	OrderStatusCompleted     = "completed"
	OrderStatusCancelled     = "cancelled"
)

type Order struct {
	ID          string `json:"id" firestore:"id"`
	CustomerID  string `json:"customer_id" firestore:"customerId"`
	MasterID    string `json:"master_id,omitempty" firestore:"masterId,omitempty"`
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description,omitempty" firestore:"description,omitempty"`
	Category    string `json:"category,omitempty" firestore:"category,omitempty"`
	Status      string `json:"status" firestore:"status"`

	// Price agreed through the accepted bid; zero while bidding.
	Price float64 `json:"price" firestore:"price"`

	Rating int    `json:"rating,omitempty" firestore:"rating,omitempty"`
	Review string `json:"review,omitempty" firestore:"review,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty" firestore:"cancellationReason,omitempty"`

	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty" firestore:"assignedAt,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty" firestore:"submittedAt,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" firestore:"cancelledAt,omitempty"`
}

var orderTransitions = map[string][]string{
	OrderStatusDraft:         {OrderStatusBidding, OrderStatusCancelled},
	OrderStatusBidding:       {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress:    {OrderStatusPendingReview, OrderStatusCancelled},
	OrderStatusPendingReview: {OrderStatusCompleted},
	OrderStatusCompleted:     {},
	OrderStatusCancelled:     {},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another. Role checks live in the use case layer.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type OrderLog struct {
	ID        string    `json:"id" firestore:"id"`
	OrderID   string    `json:"order_id" firestore:"orderId"`
	Status    string    `json:"status" firestore:"status"`
	Notes     string    `json:"notes,omitempty" firestore:"notes,omitempty"`
	CreatedBy string    `json:"created_by" firestore:"createdBy"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
