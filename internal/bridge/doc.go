// Package bridge implements the client side of the DMX LAN bridge API.
//
// The bridge exposes a REST surface for devices, DMX mappings, logs, and
// health, plus two WebSocket streams (live logs and system events). This
// package provides a typed Client over both, along with the error taxonomy
// the rest of the console uses to decide whether a failure is retryable,
// an auth problem, or bad input.
//
// A configured API key is sent as both an X-API-Key header and a Bearer
// Authorization header on every request, REST and WebSocket alike.
package bridge
