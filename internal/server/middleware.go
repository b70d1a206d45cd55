package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/config"
	"github.com/smallbiznis/mesa/internal/ratelimit"
	"go.uber.org/zap"
)

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// AccountMiddleware resolves the calling tenant from the X-Account-ID and
// X-Account-Role headers and stores it on the request context. Requests
// without a header fall back to the configured default account so single
// tenant installs work without any client changes.
func AccountMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := accountcontext.Account{
			ID:   snowflake.ID(cfg.DefaultAccountID),
			Role: "admin",
		}

		if raw := strings.TrimSpace(c.GetHeader("X-Account-ID")); raw != "" {
			id, err := snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, newValidationError("X-Account-ID", "invalid_account_id", "malformed account id"))
				return
			}
			account = accountcontext.Account{
				ID:   id,
				Role: strings.TrimSpace(c.GetHeader("X-Account-Role")),
			}
		}

		ctx := accountcontext.WithAccount(c.Request.Context(), account)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// WriteRateLimitMiddleware throttles mutating requests per account. Read
// traffic passes through untouched; redis failures fail open so the API
// never goes down with its limiter.
func WriteRateLimitMiddleware(limiter *ratelimit.WriteLimiter, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.ratelimit")
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		default:
			c.Next()
			return
		}

		account, ok := accountcontext.FromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowAccount(c.Request.Context(), account.ID.String())
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many write requests for this account",
			}})
			return
		}
		c.Next()
	}
}
