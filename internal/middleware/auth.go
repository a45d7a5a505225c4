package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// Claims represents the JWT claims issued by the auth gateway
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthConfig configures the auth middleware
type AuthConfig struct {
	JWTSecret string
	// AllowLegacyHeaders permits X-User-ID / X-User-Email headers as a
	// fallback identity source during gateway migration
	AllowLegacyHeaders bool
	Logger             *logrus.Logger
}

// Auth validates bearer tokens and places the caller identity in the context.
// Webhook and health endpoints are mounted outside the authenticated groups,
// so no path skipping happens here.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.AllowLegacyHeaders && c.GetHeader("X-User-ID") != "" {
				c.Set(UserIDKey, c.GetHeader("X-User-ID"))
				c.Set(UserEmailKey, c.GetHeader("X-User-Email"))
				c.Next()
				return
			}
			cfg.Logger.Warn("Missing authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Authorization header is required",
				},
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			cfg.Logger.Warn("Invalid authorization header format")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN_FORMAT",
					"message": "Authorization header must be in format: Bearer <token>",
				},
			})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenParts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil {
			cfg.Logger.WithError(err).Warn("Invalid or expired token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Invalid or expired token",
				},
			})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(*Claims); ok && token.Valid {
			c.Set(UserIDKey, claims.UserID)
			c.Set(UserEmailKey, claims.Email)
		}

		c.Next()
	}
}
