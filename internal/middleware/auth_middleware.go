package middleware

import (
	"errors"
	"strings"

	"rentbook/internal/models"
	"rentbook/internal/services"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/jwt"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextUser       = "user"
	ContextUserID     = "user_id"
	ContextRole       = "role"
	ContextOwnerScope = "owner_scope"
	ContextClaims     = "claims"
)

// AuthMiddleware 认证中间件
type AuthMiddleware struct {
	userService *services.UserService
	resolver    *services.AccessResolver
	jwtManager  *jwt.JWTManager
}

func NewAuthMiddleware(userService *services.UserService, resolver *services.AccessResolver, jwtManager *jwt.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		resolver:    resolver,
		jwtManager:  jwtManager,
	}
}

// Authenticate 校验访问令牌，返回有效用户及其可见范围
func (m *AuthMiddleware) Authenticate(tokenString string) (*models.User, services.OwnerScope, *jwt.JWTClaims, error) {
	claims, err := m.jwtManager.VerifyToken(tokenString, jwt.TokenTypeAccess)
	if err != nil {
		return nil, services.OwnerScope{}, nil, apperrors.ErrUnauthorized
	}

	user, err := m.userService.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, services.OwnerScope{}, nil, apperrors.ErrUnauthorized
		}
		return nil, services.OwnerScope{}, nil, err
	}
	if !m.userService.IsActive(user) {
		return nil, services.OwnerScope{}, nil, apperrors.ErrUnauthorized
	}

	scope, err := m.resolver.Resolve(user)
	if err != nil {
		return nil, services.OwnerScope{}, nil, err
	}
	return user, scope, claims, nil
}

// RequireLogin 要求 Bearer 访问令牌
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authentication credentials were not provided")
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "authorization header must use the Bearer scheme")
			c.Abort()
			return
		}

		user, scope, claims, err := m.Authenticate(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				response.Unauthorized(c, "token is invalid or expired")
			} else {
				response.FromError(c, err)
			}
			c.Abort()
			return
		}

		SetAuthContext(c, user, scope, claims)
		c.Next()
	}
}

// SetAuthContext 将认证结果写入上下文
func SetAuthContext(c *gin.Context, user *models.User, scope services.OwnerScope, claims *jwt.JWTClaims) {
	c.Set(ContextUser, user)
	c.Set(ContextUserID, user.ID)
	c.Set(ContextRole, user.Role)
	c.Set(ContextOwnerScope, scope)
	if claims != nil {
		c.Set(ContextClaims, claims)
	}
}

// RequireRole 要求特定角色之一
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			response.Unauthorized(c, "authentication credentials were not provided")
			c.Abort()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "you do not have permission to perform this action")
		c.Abort()
	}
}
