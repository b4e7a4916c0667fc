package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mbastos/filegate/internal/seclog"
	"github.com/mbastos/filegate/internal/service"
)

const actorKey = "actor"

// Logging logs one structured line per request, metadata only.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		)
	}
}

// Recover converts handler panics into 500 responses.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// Auth validates the Bearer token and reloads the account, so role changes
// and deactivation take effect immediately rather than at token expiry.
func Auth(auth service.AuthService, sec *seclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			return
		}
		uid, err := auth.ParseAccessToken(token)
		if err != nil {
			sec.Event(c.Request.Context(), seclog.EventInvalidToken, c.ClientIP(), nil, "token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		_, p, err := auth.Validate(c.Request.Context(), uid)
		if err != nil {
			sec.Event(c.Request.Context(), seclog.EventInvalidToken, c.ClientIP(), &uid, "account validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorKey, service.Actor{ID: uid, Role: p.Role})
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// actor returns the identity set by Auth.
func actor(c *gin.Context) service.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(service.Actor)
	return a
}
