package middleware

import (
	"github.com/bookstore/storefront/internal/domain/session"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns otelgin followed by a handler that adds request_id and,
// when someone is signed in, user_id to the server span. sess may be nil.
//
// otelgin restores the original request context once the chain returns, so
// the attributes are set from inside the chain.
func Tracing(serviceName string, sess session.Observer) gin.HandlersChain {
	enrich := func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if sess != nil {
				if identity := sess.Current(); identity.SignedIn {
					span.SetAttributes(attribute.String("user_id", identity.UserID))
				}
			}
		}
		c.Next()
	}
	return gin.HandlersChain{otelgin.Middleware(serviceName), enrich}
}
