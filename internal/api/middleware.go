package api

import (
	"net/http"
	"strings"
	"time"

	"comanda/internal/auth"
	"comanda/internal/metrics"
	"comanda/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	principalKey    = "principal"
)

// requestLogger logs one entry per request and tags it with a request id
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if p := currentPrincipal(c); p != nil {
			entry = entry.WithField("user_id", p.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

func requestMetrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// requireSession resolves the caller's session token against the session store
func (a *API) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.auth.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			a.respondError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func requireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := currentPrincipal(c)
		if p == nil || !p.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// sessionToken reads a bearer token, falling back to the auth cookie
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	token, _ := c.Cookie(tokenCookie)
	return token
}

func currentPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}
