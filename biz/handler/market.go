package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/service"
)

type MarketHandler struct {
	coordinator *service.Coordinator
}

func NewMarketHandler(coordinator *service.Coordinator) *MarketHandler {
	return &MarketHandler{coordinator: coordinator}
}

func (h *MarketHandler) OrderBook(ctx context.Context, c *app.RequestContext) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "%v", err))
		return
	}
	bids, asks := h.coordinator.OrderBookSnapshot(symbol)
	c.JSON(consts.StatusOK, map[string]interface{}{"bids": bids, "asks": asks})
}

func (h *MarketHandler) Trades(ctx context.Context, c *app.RequestContext) {
	symbol, err := model.ParseSymbol(c.Param("symbol"))
	if err != nil {
		errorJSON(c, consts.StatusBadRequest, model.NewError(model.ErrValidation, "%v", err))
		return
	}
	limit := 50
	if l := string(c.Query("limit")); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	trades, cerr := h.coordinator.ListTrades(ctx, symbol, limit)
	if cerr != nil {
		errorJSON(c, statusFor(cerr.Kind), cerr)
		return
	}
	c.JSON(consts.StatusOK, trades)
}
