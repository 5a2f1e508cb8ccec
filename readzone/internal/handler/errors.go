package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

// HTTPErrorHandler renders every failure, including echo's own, as an error envelope.
func (h *Handler) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := h.render(err, c)
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, body)
	}
	if werr != nil {
		h.log.Error("write error response", zap.Error(werr))
	}
}

func (h *Handler) render(err error, c echo.Context) (int, model.Response) {
	if e, found := errs.As(err); found {
		code := errs.HTTPStatus(e.Type)
		if code >= http.StatusInternalServerError && e.Type != errs.ServerError && e.Type != errs.Timeout {
			h.log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}
		return code, model.Fail(e.Type, e.Message, e.Details)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		t := echoErrorType(he.Code)
		if t == errs.UnknownError {
			h.log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}
		return he.Code, model.Fail(t, httpErrorMessage(he), nil)
	}

	if errors.Is(err, errs.ErrNotFound) {
		return http.StatusNotFound, model.Fail(errs.NotFound, "not found", nil)
	}

	h.log.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	return http.StatusInternalServerError, model.Fail(errs.UnknownError, "internal server error", nil)
}

func echoErrorType(code int) errs.ErrorType {
	switch code {
	case http.StatusUnauthorized:
		return errs.Unauthorized
	case http.StatusForbidden:
		return errs.Forbidden
	case http.StatusNotFound:
		return errs.NotFound
	case http.StatusTooManyRequests:
		return errs.RateLimitExceeded
	}
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		return errs.InvalidParams
	}
	return errs.UnknownError
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return "internal server error"
	}
	if msg, isString := he.Message.(string); isString {
		return msg
	}
	return fmt.Sprint(he.Message)
}
