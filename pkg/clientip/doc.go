// Package clientip resolves the client's network address from an HTTP
// request, looking through the proxy headers common in front of the service
// before falling back to the socket address.
//
// The resolved address is the caller's origin identity for lockout
// accounting, so the header order matters: headers set by trusted
// infrastructure (CDN, load balancer) are preferred over the raw remote
// address, which in most deployments belongs to the proxy itself. Values are
// parsed and normalized with net.ParseIP; anything that is not a valid IP is
// skipped rather than trusted.
package clientip
