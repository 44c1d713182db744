// Package transport defines the handler interfaces and middleware chain for
// the ors-proxy HTTP/SSE transport layer.
//
// The transport layer bridges external clients and ors-proxy's internal
// processing engine. It deserializes incoming requests into the core protocol
// types defined in pkg/api, dispatches them for processing, and serializes
// responses back to the client in either synchronous (JSON) or streaming
// (SSE) format.
//
// # Handler Interfaces
//
// Two handler interfaces define the contract between the transport layer and
// the processing engine:
//
//   - ResponseCreator handles the core create-response operation.
//   - HealthChecker reports whether the backing store is reachable, used by
//     GET /healthz.
//
// The ResponseWriter interface abstracts streaming and non-streaming output,
// allowing the handler to emit SSE events or complete JSON responses without
// knowing the underlying transport protocol.
//
// # Middleware
//
// The middleware chain wraps ResponseCreator with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. Custom middleware
// can be added for application-specific concerns.
//
// # Standard Library HTTP Plumbing
//
// This package's HTTP routing and streaming use only the standard library:
// net/http with Go 1.22+ ServeMux routing patterns, http.NewResponseController
// for SSE flushing, and log/slog for structured logging. Domain concerns
// (storage, auth, metrics) live in their own packages and bring in the
// project's third-party dependencies there.
package transport
