package handler

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/usecase"
	"furnimarket/pkg/response"
	"furnimarket/pkg/utils"
)

type WalletHandler struct {
	walletUseCase *usecase.WalletUseCase
}

func NewWalletHandler(walletUseCase *usecase.WalletUseCase) *WalletHandler {
	return &WalletHandler{
		walletUseCase: walletUseCase,
	}
}

func (h *WalletHandler) GetMyWallet(c echo.Context) error {
	uid := c.Get("uid").(string)

	wallet, err := h.walletUseCase.GetWallet(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, wallet)
}

func (h *WalletHandler) ListMyTransactions(c echo.Context) error {
	uid := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	txns, total, err := h.walletUseCase.ListTransactions(c.Request().Context(), uid, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, txns, total, pagination.PageSize, pagination.Offset)
}
