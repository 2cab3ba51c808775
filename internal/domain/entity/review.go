package entity

import "time"

// Review is written by the customer when accepting finished work.
type Review struct {
	ID         string    `json:"id" firestore:"id"`
	OrderID    string    `json:"order_id" firestore:"orderId"`
	CustomerID string    `json:"customer_id" firestore:"customerId"`
	MasterID   string    `json:"master_id" firestore:"masterId"`
	Rating     int       `json:"rating" firestore:"rating"` // 1..5
	Content    string    `json:"content,omitempty" firestore:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
