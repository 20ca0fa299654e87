// Package api is the bridge's local, read-only status API.
//
//	GET /api/v1/health      subscription state; 503 until subscribed
//	GET /api/v1/stats       pipeline counters
//	GET /api/v1/deliveries  a page of the delivery journal
//
// It has no authentication. Bind it to loopback unless the network is
// trusted.
package api
