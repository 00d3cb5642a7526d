package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/service"
)

type AssetHandler struct {
	coordinator *service.Coordinator
}

func NewAssetHandler(coordinator *service.Coordinator) *AssetHandler {
	return &AssetHandler{coordinator: coordinator}
}

type depositRequest struct {
	UserID         int64  `json:"user_id" vd:"$>0"`
	Currency       string `json:"currency"`
	Amount         string `json:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (h *AssetHandler) Deposit(ctx context.Context, c *app.RequestContext) {
	var req depositRequest
	if err := c.BindAndValidate(&req); err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "%v", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid amount: %v", err))
		return
	}
	balance, cerr := h.coordinator.Deposit(ctx, req.UserID, model.Currency(req.Currency), amount, req.IdempotencyKey)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, balance)
}

type withdrawRequest struct {
	UserID   int64  `json:"user_id" vd:"$>0"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func (h *AssetHandler) Withdraw(ctx context.Context, c *app.RequestContext) {
	var req withdrawRequest
	if err := c.BindAndValidate(&req); err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "%v", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid amount: %v", err))
		return
	}
	balance, cerr := h.coordinator.Withdraw(ctx, req.UserID, model.Currency(req.Currency), amount)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, balance)
}

func (h *AssetHandler) GetBalance(ctx context.Context, c *app.RequestContext) {
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid user_id"))
		return
	}
	currency := c.Param("currency")
	balance, cerr := h.coordinator.GetBalance(ctx, userID, model.Currency(currency))
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, balance)
}

func (h *AssetHandler) ListBalances(ctx context.Context, c *app.RequestContext) {
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid user_id"))
		return
	}
	balances, cerr := h.coordinator.ListBalances(ctx, userID)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, balances)
}
