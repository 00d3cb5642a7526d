// Package handler is the thin Hertz HTTP ingress layer: DTO
// marshal/unmarshal and status-code mapping only, no business logic.
// Grounded on the teacher's biz/handler/order.go, retargeted from
// pg.CreateOrder/pg.GetOrder onto the Trading Coordinator.
package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/service"
)

type OrderHandler struct {
	coordinator *service.Coordinator
}

func NewOrderHandler(coordinator *service.Coordinator) *OrderHandler {
	return &OrderHandler{coordinator: coordinator}
}

type submitOrderRequest struct {
	UserID         int64   `json:"user_id" vd:"$>0"`
	Kind           string  `json:"kind" vd:"$=='LIMIT'||$=='MARKET'"`
	Side           string  `json:"side" vd:"$=='BUY'||$=='SELL'"`
	Base           string  `json:"base"`
	Quote          string  `json:"quote"`
	Price          *string `json:"price,omitempty"`
	Qty            string  `json:"qty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

func (h *OrderHandler) Submit(ctx context.Context, c *app.RequestContext) {
	var req submitOrderRequest
	if err := c.BindAndValidate(&req); err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "%v", err))
		return
	}

	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid quantity: %v", err))
		return
	}
	var price *decimal.Decimal
	if req.Price != nil {
		p, err := decimal.NewFromString(*req.Price)
		if err != nil {
			errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid price: %v", err))
			return
		}
		price = &p
	}

	order, cerr := h.coordinator.Submit(ctx, service.SubmitRequest{
		UserID:         req.UserID,
		Kind:           model.OrderKind(req.Kind),
		Side:           model.OrderSide(req.Side),
		Base:           model.Currency(req.Base),
		Quote:          model.Currency(req.Quote),
		Price:          price,
		Qty:            qty,
		IdempotencyKey: req.IdempotencyKey,
	})
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, order)
}

func (h *OrderHandler) Cancel(ctx context.Context, c *app.RequestContext) {
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid user_id"))
		return
	}
	orderID, err := paramInt64(c, "id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid order id"))
		return
	}
	order, cerr := h.coordinator.Cancel(ctx, userID, orderID)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, order)
}

func (h *OrderHandler) Get(ctx context.Context, c *app.RequestContext) {
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid user_id"))
		return
	}
	orderID, err := paramInt64(c, "id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid order id"))
		return
	}
	order, cerr := h.coordinator.GetOrder(ctx, userID, orderID)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, order)
}

func (h *OrderHandler) List(ctx context.Context, c *app.RequestContext) {
	userID, err := queryInt64(c, "user_id")
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "invalid user_id"))
		return
	}
	orders, cerr := h.coordinator.ListOrders(ctx, userID)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, orders)
}
