// Package youtube talks to YouTube's unauthenticated innertube API: resolving
// channel URLs to channel identities, listing live broadcasts, and polling the
// live chat for membership-gift announcements.
package youtube
