// Package broadcast fans server events out to every connected overlay and
// control-panel client over WebSocket. A single actor goroutine owns the
// client set; each client gets its own writer goroutine with a bounded send
// buffer, and clients that cannot keep up are evicted.
package broadcast
