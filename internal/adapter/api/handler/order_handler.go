package handler

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/domain/entity"
	"furnimarket/internal/usecase"
	"furnimarket/pkg/errors"
	"furnimarket/pkg/response"
	"furnimarket/pkg/utils"
)

type OrderHandler struct {
	orderUseCase *usecase.OrderUseCase
}

func NewOrderHandler(orderUseCase *usecase.OrderUseCase) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req usecase.CreateOrderInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	order, err := h.orderUseCase.CreateOrder(c.Request().Context(), uid, req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	uid := c.Get("uid").(string)

	order, err := h.orderUseCase.GetOrder(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}

// ListOrders lists the caller's own orders; the role query parameter picks
// which side of the marketplace to list for.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	uid := c.Get("uid").(string)
	role := c.QueryParam("role")
	if role != entity.RoleMaster {
		role = entity.RoleCustomer
	}
	pagination := utils.GetPaginationParams(c)

	orders, total, err := h.orderUseCase.ListOrders(c.Request().Context(), uid, role, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, orders, total, pagination.PageSize, pagination.Offset)
}

func (h *OrderHandler) PlaceBid(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req usecase.PlaceBidInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	bid, err := h.orderUseCase.PlaceBid(c.Request().Context(), uid, c.Param("id"), req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, bid)
}

func (h *OrderHandler) ListBids(c echo.Context) error {
	uid := c.Get("uid").(string)

	bids, err := h.orderUseCase.ListBids(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, bids)
}

func (h *OrderHandler) AcceptBid(c echo.Context) error {
	uid := c.Get("uid").(string)

	order, err := h.orderUseCase.AcceptBid(c.Request().Context(), uid, c.Param("id"), c.Param("bidId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}

func (h *OrderHandler) SubmitForReview(c echo.Context) error {
	uid := c.Get("uid").(string)

	order, err := h.orderUseCase.SubmitForReview(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}

func (h *OrderHandler) AcceptWork(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req usecase.AcceptWorkInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	order, err := h.orderUseCase.AcceptWork(c.Request().Context(), uid, c.Param("id"), req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req cancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	order, err := h.orderUseCase.CancelOrder(c.Request().Context(), uid, c.Param("id"), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, order)
}
