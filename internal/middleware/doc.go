// Package middleware provides HTTP middleware for the query server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip response compression
package middleware
