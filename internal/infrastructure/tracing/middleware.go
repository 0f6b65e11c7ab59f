package tracing

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/keyx/internal/shared/id"
)

// Middleware tags every request with an ID, echoes it in the response
// and submits a span once the handler chain returns.
func Middleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		span, ctx := tracer.StartSpan(c.Request.Context(), route, id.RequestID(c.GetHeader(HeaderRequestID)))
		span.Method = c.Request.Method
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, span.RequestID.String())

		c.Next()

		span.Status = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.Error = c.Errors.Last()
		}
		span.Finish()
		tracer.Submit(span)
	}
}
