package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
	"github.com/Movelgroup/movel-RestAPI/internal/auth"
)

// Context keys
const (
	ctxTraceID  = "traceId"
	ctxClientID = "clientId"
	ctxClaims   = "claims"
	ctxActivity = "activity"
)

// Headers
const (
	HeaderApiKey   = "X-Api-Key"
	HeaderClientID = "X-Client-ID"
	HeaderTraceID  = "X-Trace-Id"
)

// traceMiddleware assigns every request a trace id
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := uuid.NewString()
		c.Set(ctxTraceID, traceID)
		c.Header(HeaderTraceID, traceID)
		c.Next()
	}
}

func traceIDOf(c *gin.Context) string {
	return c.GetString(ctxTraceID)
}

// errorHandler turns errors pushed with c.Error into the error body. Detail
// of dependency and unexpected failures stays in the logs unless debugging.
func (h *Handler) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		kind := apperr.KindOf(err)
		traceID := traceIDOf(c)
		fields := []zap.Field{
			zap.String("trace_id", traceID),
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind.String()),
			zap.Error(err),
		}
		switch kind {
		case apperr.KindDependency, apperr.KindUnexpected:
			h.Logger.Error("Request failed", fields...)
		default:
			h.Logger.Warn("Request rejected", fields...)
		}

		body := gin.H{
			"status":  "Error",
			"message": apperr.Message(err),
			"traceId": traceID,
		}
		if c.GetBool(ctxActivity) {
			body["activityId"] = traceID
		}
		if h.Debug {
			body["details"] = err.Error()
		}
		c.AbortWithStatusJSON(kind.Status(), body)
	}
}

// recovery converts panics into unexpected errors for errorHandler
func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// requestLogger logs one line per request
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.Logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_id", c.GetString(ctxClientID)),
			zap.String("trace_id", traceIDOf(c)))
	}
}

// corsMiddleware CORS headers; an empty list allows every origin
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key, X-Client-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireApiKey gates a route on X-Api-Key, optionally bound to X-Client-ID
func (h *Handler) requireApiKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderApiKey)
		clientID := c.GetHeader(HeaderClientID)

		entry, err := h.ApiKeys.Lookup(c.Request.Context(), key, clientID)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if entry == nil {
			h.Logger.Warn("Invalid API key",
				zap.String("api_key", auth.Redact(key)),
				zap.String("client_id", clientID))
			_ = c.Error(apperr.Authentication("Invalid API key"))
			c.Abort()
			return
		}

		c.Set(ctxClientID, entry.ClientID)
		c.Next()
	}
}

// requireBearer verifies the access token and stores its claims
func (h *Handler) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := h.Tokens.Verify(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func claimsOf(c *gin.Context) (*auth.Claims, error) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, errors.New("claims missing from context")
	}
	return v.(*auth.Claims), nil
}

// bearerToken strips the Bearer scheme, empty when absent
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func success(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"status": "Success", "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
