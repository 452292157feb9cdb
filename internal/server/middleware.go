package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/memberline/memberline/internal/tenantctx"
	"go.uber.org/zap"
)

const (
	contextAPIKeyIDKey = "api_key_id"
	contextActorKey    = "actor"
)

// RequestLogger logs each request with a correlation identifier and safe fields.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	logger := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.String("error", lastErr.Err.Error()))
		}

		switch {
		case strings.EqualFold(route, "/metrics"):
			logger.Debug("http_request", fields...)
		case status >= http.StatusInternalServerError:
			logger.Error("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

// APIKeyRequired authenticates requests using a tenant API key. Tenant
// identity is derived solely from the api_keys table.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.apiKeySvc.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextAPIKeyIDKey, key.ID.String())
		c.Set(contextActorKey, fmt.Sprintf("api_key:%s", key.ID.String()))

		c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), key.TenantID))
		c.Next()
	}
}

// authorizeAction gates a route on the actor's permission within the tenant.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetString(contextActorKey)
		tenantID := s.tenantID(c)
		if actor == "" || tenantID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), actor, tenantID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// tenantID returns the authenticated tenant carried on the request
// context by APIKeyRequired.
func (s *Server) tenantID(c *gin.Context) string {
	id, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok {
		return ""
	}
	return id.String()
}
