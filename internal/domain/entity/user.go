package entity

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleMaster   = "master"
	RoleAdmin    = "admin"
)

type User struct {
	ID       string `json:"id" firestore:"id"`
	Email    string `json:"email" firestore:"email"`
	Username string `json:"username" firestore:"username"`
	Phone    string `json:"phone,omitempty" firestore:"phone,omitempty"`
	Bio      string `json:"bio,omitempty" firestore:"bio,omitempty"`
	Role     string `json:"role" firestore:"role"` // "customer", "master", "admin"
	Status   string `json:"status" firestore:"status"`

	FullName  string `json:"full_name,omitempty" firestore:"fullName,omitempty"`
	City      string `json:"city,omitempty" firestore:"city,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`

	// Master-only craft profile fields
	Workshop          string  `json:"workshop,omitempty" firestore:"workshop,omitempty"`
	MasterRating      float64 `json:"master_rating,omitempty" firestore:"masterRating,omitempty"`
	MasterReviewCount int     `json:"master_review_count,omitempty" firestore:"masterReviewCount,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
