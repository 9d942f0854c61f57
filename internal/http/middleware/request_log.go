package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

// Probe routes are logged at debug so load balancers do not flood the log.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		fields := requestLogFields(c, time.Since(start))
		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietRoutes[c.FullPath()]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func requestLogFields(c *gin.Context, elapsed time.Duration) []interface{} {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	fields := []interface{}{
		"method", strings.ToUpper(c.Request.Method),
		"route", route,
		"status", c.Writer.Status(),
		"duration_ms", elapsed.Milliseconds(),
		"bytes_out", c.Writer.Size(),
	}
	fields = append(fields, ctxutil.TraceFields(c.Request.Context())...)
	if id := ctxutil.UserID(c.Request.Context()); id != uuid.Nil {
		fields = append(fields, "user_id", id.String())
	}
	// Quiz routes carry the topic in the path and the session position in the query.
	if topic := c.Param("topic"); topic != "" {
		fields = append(fields, "topic", strings.ToLower(topic))
	}
	if qn := c.Query("questionNumber"); qn != "" {
		fields = append(fields, "question_number", qn)
	}
	if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
		fields = append(fields, "errors", errs.String())
	}
	return fields
}
