package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

type JWTConfig struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RememberTTL   time.Duration
}

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func GenerateToken(userID int64, username, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (c *JWTConfig) ttl(remember bool) time.Duration {
	if remember {
		return c.RememberTTL
	}
	return c.AccessTTL
}

func (c *JWTConfig) IssueAccess(userID int64, username string, remember bool) (string, error) {
	return GenerateToken(userID, username, c.Secret, c.ttl(remember))
}

func (c *JWTConfig) IssueRefresh(userID int64, username string, remember bool) (string, error) {
	return GenerateToken(userID, username, c.RefreshSecret, c.ttl(remember))
}

func (c *JWTConfig) VerifyRefresh(token string) (int64, string, error) {
	claims, err := ParseToken(token, c.RefreshSecret)
	if err != nil {
		return 0, "", err
	}
	return claims.UserID, claims.Username, nil
}

// VerifyAccess validates an access token outside the middleware chain, for
// example on websocket upgrades.
func (c *JWTConfig) VerifyAccess(token string) (*Claims, error) {
	return ParseToken(token, c.Secret)
}

// NewJWTAuth requires a bearer access token. A missing token is 401, a bad
// or expired one 403.
func NewJWTAuth(config *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || tokenString == "" {
			_ = c.Error(apperror.Unauthorized("Missing token"))
			c.Abort()
			return
		}

		claims, err := config.VerifyAccess(tokenString)
		if err != nil {
			_ = c.Error(apperror.Forbidden("Invalid or expired token").Wrap(err))
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func GetUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}
