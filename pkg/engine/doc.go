// Package engine implements the request orchestrator: the glue that loads
// conversation context from the store, translates it to an upstream LGC
// request, drives the upstream byte stream through the framer, decoder, and
// transcoder, relays the resulting RSP events to the client, and persists
// the turn once the transcoder closes. Engine implements
// transport.ResponseCreator.
package engine
