// Package api defines the RSP (Responses-style) protocol types spoken at
// the client boundary of ors-proxy: conversation items, content parts,
// requests/responses, streaming events, structured errors, item/response
// state transitions, and id generation.
//
// The package has zero external dependencies and performs no I/O. Types
// implement custom MarshalJSON/UnmarshalJSON where the wire format is a
// flat, tagged-union shape rather than Go's natural nested struct layout.
package api
