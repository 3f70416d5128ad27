package jwt

import (
	"errors"
	"sync"
	"time"

	"rentbook/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// 令牌类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const issuer = "rentbook"

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// JWTClaims JWT声明
type JWTClaims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair 登录返回的令牌对
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey       string
	tokenDuration   time.Duration
	refreshDuration time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, tokenDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       secretKey,
		tokenDuration:   tokenDuration,
		refreshDuration: refreshDuration,
	}
}

func (manager *JWTManager) sign(userID uint, username, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// GenerateToken 生成访问令牌
func (manager *JWTManager) GenerateToken(userID uint, username, role string) (string, error) {
	return manager.sign(userID, username, role, TokenTypeAccess, manager.tokenDuration)
}

// GenerateTokenPair 生成访问令牌和刷新令牌
func (manager *JWTManager) GenerateTokenPair(userID uint, username, role string) (*TokenPair, error) {
	access, err := manager.GenerateToken(userID, username, role)
	if err != nil {
		return nil, err
	}
	refresh, err := manager.sign(userID, username, role, TokenTypeRefresh, manager.refreshDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyToken 验证令牌签名、有效期和类型
func (manager *JWTManager) VerifyToken(tokenString, expectedType string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(manager.secretKey), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// RefreshToken 用刷新令牌换取新的访问令牌
func (manager *JWTManager) RefreshToken(refreshToken string) (string, *JWTClaims, error) {
	claims, err := manager.VerifyToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", nil, err
	}

	access, err := manager.GenerateToken(claims.UserID, claims.Username, claims.Role)
	return access, claims, err
}

// GetTokenDuration 获取访问令牌有效期
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}

var (
	defaultManager *JWTManager
	once           sync.Once
)

// GetJWTManager 获取全局JWT管理器实例
func GetJWTManager() *JWTManager {
	once.Do(func() {
		cfg := config.GetConfig()
		defaultManager = NewJWTManager(cfg.JWT.SecretKey, cfg.AccessTokenDuration(), cfg.RefreshTokenDuration())
	})
	return defaultManager
}
