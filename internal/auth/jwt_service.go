// Package auth 校验宿主平台签发的访问令牌
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLength HS256 密钥最短长度
const minSecretLength = 32

var (
	// ErrSecretNotSet 未配置 jwt_secret
	ErrSecretNotSet = errors.New("JWT secret is not initialized")
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("invalid or expired token")
)

// JWTService JWT 令牌服务
type JWTService struct {
	mu     sync.RWMutex
	secret []byte
}

// NewJWTService 创建 JWT 服务，secret 至少 32 个字符
func NewJWTService(secret string) (*JWTService, error) {
	s := &JWTService{}
	if err := s.SetSecret(secret); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSecret 替换签名密钥，用于配置热更新
func (s *JWTService) SetSecret(secret string) error {
	if len(secret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d characters long, got %d", minSecretLength, len(secret))
	}
	s.mu.Lock()
	s.secret = []byte(secret)
	s.mu.Unlock()
	return nil
}

func (s *JWTService) key() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// GenerateAccessToken 为用户签发访问令牌
func (s *JWTService) GenerateAccessToken(userGUID uint, ttl time.Duration) (string, time.Time, error) {
	secret := s.key()
	if len(secret) == 0 {
		return "", time.Time{}, ErrSecretNotSet
	}

	now := time.Now()
	expiry := now.Add(ttl)
	claims := jwt.MapClaims{
		"user_guid": userGUID,
		"type":      "access",
		"exp":       expiry.Unix(),
		"iat":       now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiry, nil
}

// ParseToken 解析和验证访问令牌，返回用户 GUID
func (s *JWTService) ParseToken(tokenString string) (uint, error) {
	secret := s.key()
	if len(secret) == 0 {
		return 0, ErrSecretNotSet
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return 0, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}

	// JSON 数字解码为 float64
	raw, ok := claims["user_guid"].(float64)
	if !ok || raw <= 0 {
		return 0, fmt.Errorf("%w: user_guid claim missing", ErrInvalidToken)
	}
	return uint(raw), nil
}
