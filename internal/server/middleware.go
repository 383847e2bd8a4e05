package server

import (
	"crypto/subtle"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/bookingsync/internal/observability/context"
)

const headerAdminToken = "X-Admin-Token"

// AdminTokenRequired accepts "Authorization: Bearer <token>" or the
// X-Admin-Token header. Without a configured token every admin call is
// rejected.
func (s *Server) AdminTokenRequired() gin.HandlerFunc {
	expected := strings.TrimSpace(s.cfg.AdminToken)
	return func(c *gin.Context) {
		if expected == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		token := strings.TrimSpace(c.GetHeader(headerAdminToken))
		if token == "" {
			parts := strings.Fields(c.GetHeader("Authorization"))
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "admin", "token")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SyncRateLimit throttles manual syncs per scope and subscription.
func (s *Server) SyncRateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			key += ":" + id
		}
		res := s.limiter.Allow(c.Request.Context(), key)
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
