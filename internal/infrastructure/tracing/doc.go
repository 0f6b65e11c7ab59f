/*
Package tracing tags HTTP requests with a request ID and logs one span per
request.

Incoming X-Request-ID headers are honoured when they parse as an ID, so a
caller can correlate its own logs with ours. Otherwise a fresh req_* ULID
is generated. The ID is echoed in the response header and stored on the
request context, where handlers read it back with RequestID.

Spans are handed to a buffered collector goroutine and logged there, so the
request path never waits on the log sink.

	tracer := tracing.New(logger)
	defer tracer.Close()
	router.Use(tracing.Middleware(tracer))
*/
package tracing
