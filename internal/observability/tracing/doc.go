// Package tracing provides OpenTelemetry tracing integration.
//
// Middleware wraps an http.Handler so that each request runs in a server span
// (trace context is extracted from the incoming headers, and the trace ID is
// returned in an X-Trace-Id response header). GetTracer returns the package's
// tracer for code that starts its own spans.
//
// The package sets up no exporter and no TracerProvider: spans go to whatever
// provider is installed globally in otel, which is a no-op unless one is set.
//
// Example usage:
//
//	handler := tracing.Middleware(mux)
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
