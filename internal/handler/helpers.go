package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/campuskb/campuskb/internal/pkg/errcode"
	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
	"github.com/campuskb/campuskb/internal/pkg/response"
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
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrSyncBusy):
		response.Error(c, errcode.ErrSyncBusy, "refresh already running")
	case errors.Is(err, appErr.ErrSyncAborted):
		response.Error(c, errcode.ErrSyncFailed, "refresh failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
