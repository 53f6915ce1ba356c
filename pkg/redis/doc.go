// Package redis connects the service to Redis, which backs the shared
// lockout store. Connection setup retries until the server is ready and a
// health check closure is provided for the readiness endpoint.
package redis
