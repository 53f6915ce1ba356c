// Package httpserver wraps net/http's Server with graceful shutdown on
// SIGINT/SIGTERM or context cancellation, functional options, and env-driven
// configuration.
package httpserver
