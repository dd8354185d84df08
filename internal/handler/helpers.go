package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pagenook/notegraph/internal/pkg/errcode"
	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
	"github.com/pagenook/notegraph/internal/pkg/response"
	"github.com/pagenook/notegraph/internal/taskqueue"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict), errors.Is(err, appErr.ErrBuildRunning):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, taskqueue.ErrQueueFull), errors.Is(err, taskqueue.ErrStopped):
		response.Error(c, errcode.ErrBuildQueueFull, "build queue full")
	case errors.Is(err, appErr.ErrBadCredential):
		response.Error(c, errcode.ErrBadCredential, "invalid provider credential")
	case errors.Is(err, appErr.ErrProviderRejected), errors.Is(err, appErr.ErrProviderThrottled):
		response.Error(c, errcode.ErrProviderFailed, "embedding provider failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
