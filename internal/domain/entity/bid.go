package entity

import "time"

const (
	BidStatusPending  = "pending"
	BidStatusAccepted = "accepted"
	BidStatusDeclined = "declined"
)

type Bid struct {
	ID        string    `json:"id" firestore:"id"`
	OrderID   string    `json:"order_id" firestore:"orderId"`
	MasterID  string    `json:"master_id" firestore:"masterId"`
	Price     float64   `json:"price" firestore:"price"`
	Comment   string    `json:"comment,omitempty" firestore:"comment,omitempty"`
	DaysToDo  int       `json:"days_to_do,omitempty" firestore:"daysToDo,omitempty"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
