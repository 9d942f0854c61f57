package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
)

const maxCorrelationIDLen = 128

// AttachTraceContext correlates a request with its caller. The otel span
// wins over a client supplied trace id; client ids are kept only when short
// and printable.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := sanitizeCorrelationID(c.GetHeader(ctxutil.HeaderRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		var traceID string
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = sanitizeCorrelationID(c.GetHeader(ctxutil.HeaderTraceID)); traceID == "" {
			traceID = reqID
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		}))
		c.Writer.Header().Set(ctxutil.HeaderTraceID, traceID)
		c.Writer.Header().Set(ctxutil.HeaderRequestID, reqID)
		c.Next()
	}
}

func sanitizeCorrelationID(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || len(v) > maxCorrelationIDLen {
		return ""
	}
	for _, r := range v {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return v
}
