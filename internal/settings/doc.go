// Package settings owns the authoritative user-configuration document and its
// persistence. Every mutation goes through a named operation that coerces the
// input, replaces the in-memory document, persists the whole document to disk,
// and only then broadcasts the matching invalidation topic. The package also
// manages the per-tier media assets next to the settings file.
package settings
