package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

const (
	ContextEmail = "email"
	ContextRole  = "role"
)

type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

type RoleLookup interface {
	Role(ctx context.Context, email, referralCode string) (models.Role, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error)
}

func deny(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// AuthMiddleware accepts a bearer header, or a token query parameter for
// websocket upgrades where browsers cannot set headers.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				deny(c, http.StatusUnauthorized, "Invalid authorization format")
				return
			}
			tokenString = strings.TrimSpace(parts[1])
		} else {
			tokenString = c.Query("token")
			if tokenString == "" {
				deny(c, http.StatusUnauthorized, "Authorization header required")
				return
			}
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, services.ErrExpiredToken) {
				message = "Token expired"
			}
			deny(c, http.StatusUnauthorized, message)
			return
		}

		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// RequireRole lets the request through only when the caller holds one of
// the given roles. The resolved role is stored on the context.
func RequireRole(lookup RoleLookup, allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextEmail)
		if email == "" {
			deny(c, http.StatusUnauthorized, "User not authenticated")
			return
		}

		role, err := lookup.Role(c.Request.Context(), email, "")
		if err != nil {
			deny(c, http.StatusForbidden, "Forbidden")
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Set(ContextRole, role)
				c.Next()
				return
			}
		}
		deny(c, http.StatusForbidden, "Forbidden")
	}
}

// RateLimitMiddleware applies per-account budgets to the endpoints that move
// money or consume plays.
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextEmail)
		if email == "" {
			c.Next()
			return
		}

		path := c.FullPath()

		var limit int
		var window time.Duration

		switch {
		case strings.HasSuffix(path, "/lottery/play-free"), strings.HasSuffix(path, "/dinogame/play"):
			limit = 30
			window = time.Minute
		case strings.HasSuffix(path, "/games/unlock"):
			limit = 10
			window = time.Minute
		case strings.HasSuffix(path, "/withdraw"), strings.HasSuffix(path, "/payments") && c.Request.Method == http.MethodPost:
			limit = 5
			window = time.Hour
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), email, path, limit, window)
		if err != nil || !allowed {
			c.Header("Retry-After", strconvSeconds(window))
			deny(c, http.StatusTooManyRequests, "Too many requests. Please wait.")
			return
		}

		c.Next()
	}
}
