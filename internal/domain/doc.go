// Package domain holds the core types and interfaces shared across the
// application: the settings document, normalized chat/donation events, and the
// publish/subscribe contract between producers and the overlay clients.
package domain
