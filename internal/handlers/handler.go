package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nimasrn/ride-settlement/internal/services"
	xhttp "github.com/nimasrn/ride-settlement/pkg/http"
	"github.com/nimasrn/ride-settlement/pkg/logger"
)

var errInvalidID = errors.New("invalid id")

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch services.Classify(err) {
	case services.KindNotFound:
		return xhttp.StatusNotFound
	case services.KindValidation, services.KindPreconditionFailed, services.KindInsufficientFunds:
		return xhttp.StatusBadRequest
	case services.KindConflict:
		return xhttp.StatusConflict
	}
	return xhttp.StatusInternalServerError
}

// writeServiceError reports err to the client. Fatal errors are logged and
// hidden behind a generic message.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	status := statusFor(err)
	if status == xhttp.StatusInternalServerError {
		logger.Error("request failed", "path", string(ctx.Path()), "error", err)
		xhttp.WriteError(ctx, status, xhttp.StatusText(status))
		return
	}
	xhttp.WriteError(ctx, status, err.Error())
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v := fmt.Sprint(ctx.UserValue(name))
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidID, name)
	}
	return id, nil
}

func queryInt(ctx *xhttp.RequestCtx, key string, def int) int {
	v := ctx.QueryArgs().Peek(key)
	if len(v) == 0 {
		return def
	}
	n, err := strconv.Atoi(string(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}
