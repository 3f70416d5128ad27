package handlers

import (
	"errors"

	"rentbook/internal/services"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/logger"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// TokenRequest 登录请求
type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userService.Register(services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, toUserInfo(user))
}

// Me 当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Unauthorized(c, "authentication credentials were not provided")
		return
	}
	response.Success(c, toUserInfo(user))
}

// Token 用户名密码换取令牌对
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	pair, user, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			logger.GetLogger().WithFields(logrus.Fields{
				"username":  req.Username,
				"client_ip": c.ClientIP(),
			}).Warn("Login failed")
			response.Unauthorized(c, "no active account found with the given credentials")
			return
		}
		response.FromError(c, err)
		return
	}

	logger.GetLogger().WithField("user_id", user.ID).Info("User logged in")
	response.Success(c, pair)
}

// TokenRefresh 刷新访问令牌
func (h *AuthHandler) TokenRefresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	access, err := h.userService.Refresh(req.Refresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			response.Unauthorized(c, "token is invalid or expired")
			return
		}
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"access": access})
}
