package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
)

// respondError 统一错误响应
//
// 把业务错误按错误码映射到HTTP状态；调用栈不随响应下发，
// 只在服务端日志里可见。
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	// 不向客户端暴露调用栈
	sanitized := &apperrors.AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
		State:   appErr.State,
	}

	c.JSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(sanitized, c.GetHeader("X-Request-ID")))
}

// respondBindError 请求参数绑定失败
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apperrors.NewErrorResponse(
		apperrors.New(apperrors.ErrInvalidParam, err.Error()),
		c.GetHeader("X-Request-ID"),
	))
}
