package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/domain/repository"
	"furnimarket/internal/infrastructure/firebase"
	"furnimarket/pkg/errors"
	"furnimarket/pkg/response"
)

type DevTokenHandler struct {
	firebaseAuth *firebase.FirebaseAuthClient
	userRepo     repository.UserRepository
}

func NewDevTokenHandler(firebaseAuth *firebase.FirebaseAuthClient, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		firebaseAuth: firebaseAuth,
		userRepo:     userRepo,
	}
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,oneof=customer master admin"`
}

// GenerateToken mints a development token for the given user id, creating
// the user profile when it does not exist yet. Development environments only.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()

	user, err := h.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			return response.Error(c, err)
		}
		role := req.Role
		if role == "" {
			role = entity.RoleCustomer
		}
		now := time.Now()
		user = &entity.User{
			ID:        req.UserID,
			Email:     req.Email,
			Username:  req.Username,
			Role:      role,
			Status:    "active",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.userRepo.Create(ctx, user); err != nil {
			return response.Error(c, err)
		}
	}

	token, err := h.firebaseAuth.GenerateLongLivedToken(ctx, user.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}
