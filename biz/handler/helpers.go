package handler

import (
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/cexcore/matchcore/biz/model"
)

// statusFor maps the core's discriminated ErrorKind onto an HTTP status
// (§7 propagation: validation/business errors reach the caller untouched).
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.ErrValidation, model.ErrPriceUnavailable:
		return consts.StatusBadRequest
	case model.ErrDuplicate:
		return consts.StatusConflict
	case model.ErrNotFound:
		return consts.StatusNotFound
	case model.ErrInsufficientBal, model.ErrExposureExceeded, model.ErrUncancellable:
		return consts.StatusUnprocessableEntity
	case model.ErrConcurrencyConflict:
		return consts.StatusConflict
	default:
		return consts.StatusInternalServerError
	}
}

func errorJSON(c *app.RequestContext, status int, err *model.Error) {
	c.JSON(status, map[string]interface{}{
		"error":   err.Kind,
		"message": err.Message,
		"detail":  err.Detail,
	})
}

func queryInt64(c *app.RequestContext, key string) (int64, error) {
	return strconv.ParseInt(string(c.Query(key)), 10, 64)
}

func paramInt64(c *app.RequestContext, key string) (int64, error) {
	return strconv.ParseInt(c.Param(key), 10, 64)
}
