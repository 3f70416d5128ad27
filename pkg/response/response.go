package response

import (
	stderrors "errors"

	"rentbook/pkg/errors"
	"rentbook/pkg/logger"
	"rentbook/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Response 统一返回格式
type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// PageResponse 分页返回格式
type PageResponse struct {
	Code     int                  `json:"code"`
	Message  string               `json:"message"`
	Data     interface{}          `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// ========== 基础返回方法 ==========

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	c.JSON(errors.CodeSuccess, Response{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功返回
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    201,
		Message: "created",
		Data:    data,
	})
}

// SuccessWithPage 分页成功返回
func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(errors.CodeSuccess, PageResponse{
		Code:     errors.CodeSuccess,
		Message:  "success",
		Data:     data,
		PageInfo: pageInfo,
	})
}

// Error 通用错误返回，HTTP状态码与code一致
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// ValidationFailed 字段级校验失败
func ValidationFailed(c *gin.Context, fields map[string]string) {
	c.JSON(errors.CodeInvalidParam, Response{
		Code:    errors.CodeInvalidParam,
		Message: "validation failed",
		Errors:  fields,
	})
}

// FromError 按业务错误类型返回，未知错误记录日志并返回500
func FromError(c *gin.Context, err error) {
	var ve *errors.ValidationError
	if stderrors.As(err, &ve) {
		ValidationFailed(c, ve.Fields)
		return
	}

	code := errors.Code(err)
	if code == errors.CodeServerError {
		logger.GetLogger().WithError(err).WithField("path", c.FullPath()).Error("request failed")
		ServerError(c, "internal server error")
		return
	}
	Error(c, code, err.Error())
}

// ========== HTTP错误快捷方法 ==========

func BadRequest(c *gin.Context, message string) {
	Error(c, errors.CodeInvalidParam, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, errors.CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, errors.CodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, errors.CodeNotFound, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, errors.CodeTooManyRequests, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, errors.CodeServerError, message)
}
