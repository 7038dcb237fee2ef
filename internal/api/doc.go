// Package api implements the request/reply command protocol spoken over the
// WebSocket connection. Each inbound frame carries {id, method, params}; the
// reply echoes the id with either an error string or a data payload.
package api
