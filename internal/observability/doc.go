// Package observability configures logging and exposes prometheus metrics
// for the dispatch bus and request lifecycle.
package observability
