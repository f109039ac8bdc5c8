package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/asakaida/gakudan/internal/services/authz"
)

const (
	actorKey     = "actor"
	requestIDKey = "request_id"

	headerActor     = "X-Actor"
	headerRole      = "X-Role"
	headerRequestID = "X-Request-ID"
)

// RequestLogger assigns each request an ID and logs it on completion.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(headerRequestID, requestID)

		start := time.Now()
		c.Next()

		logger.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Authenticate resolves the caller identity from the X-Actor and X-Role
// headers. Authentication itself happens upstream; an unknown or missing
// role is rejected here.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := authz.ParseRole(c.GetHeader(headerRole))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or unknown role",
			})
			return
		}
		c.Set(actorKey, authz.Actor{
			Name: c.GetHeader(headerActor),
			Role: role,
		})
		c.Next()
	}
}

// Require gates a route on the role policy table.
func Require(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authz.Allowed(action, actorFrom(c).Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "your role does not permit this operation",
			})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) authz.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(authz.Actor); ok {
			return actor
		}
	}
	return authz.Actor{}
}
