package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/middleware"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/service"
)

// errInvalidParam marks a path parameter that failed to parse. Handlers
// have already written the 400 when they see it.
var errInvalidParam = errors.New("invalid path parameter")

// requestTimeout bounds the store calls made by one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func ok(c echo.Context, status int, fields echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// respondError maps service and repository errors onto status codes. 500s
// carry a generic message; the cause only goes to the log.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"error":   "validation failed",
			"fields":  verr.Fields,
		})
	}
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrSuspended):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrUnavailable):
		return fail(c, http.StatusServiceUnavailable, err.Error())
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	)
	return fail(c, http.StatusInternalServerError, "internal server error")
}

// bind decodes the request body, answering 400 on malformed JSON.
func bind(c echo.Context, v any) bool {
	if err := c.Bind(v); err != nil {
		_ = fail(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// actor returns the caller stored by the auth middleware. Routes that use
// it are always mounted behind Authenticate.
func actor(c echo.Context) service.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

func objectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		_ = fail(c, http.StatusBadRequest, "invalid "+name)
		return primitive.NilObjectID, errInvalidParam
	}
	return id, nil
}

func uintParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, errInvalidParam
	}
	return id, nil
}

func queryInt(c echo.Context, key string, def int64) int64 {
	if raw := c.QueryParam(key); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v >= 0 {
			return v
		}
	}
	return def
}
