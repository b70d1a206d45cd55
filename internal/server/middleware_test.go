package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/config"
	"github.com/smallbiznis/mesa/internal/ratelimit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func accountProbe(t *testing.T, cfg config.Config) (*gin.Engine, *accountcontext.Account) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen accountcontext.Account
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.Use(AccountMiddleware(cfg))
	r.GET("/probe", func(c *gin.Context) {
		account, ok := accountcontext.FromContext(c.Request.Context())
		require.True(t, ok)
		seen = account
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestAccountMiddlewareReadsHeaders(t *testing.T) {
	r, seen := accountProbe(t, config.Config{DefaultAccountID: 42})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	accountID := node.Generate()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("X-Account-ID", accountID.String())
	req.Header.Set("X-Account-Role", "staff")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, accountID, seen.ID)
	require.Equal(t, "staff", seen.Role)
}

func TestAccountMiddlewareFallsBackToDefaultAccount(t *testing.T) {
	r, seen := accountProbe(t, config.Config{DefaultAccountID: 42})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/probe", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, snowflake.ID(42), seen.ID)
	require.Equal(t, "admin", seen.Role)
	require.False(t, seen.IsSuperadmin())
}

func TestAccountMiddlewareRejectsMalformedID(t *testing.T) {
	r, _ := accountProbe(t, config.Config{DefaultAccountID: 42})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("X-Account-ID", "not-a-snowflake")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteRateLimitMiddlewareDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var limiter *ratelimit.WriteLimiter
	r.Use(WriteRateLimitMiddleware(limiter, zap.NewNop()))
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/write", nil))
	require.Equal(t, http.StatusCreated, w.Code)
}
