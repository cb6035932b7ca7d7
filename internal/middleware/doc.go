// Package middleware provides HTTP middleware for access logging and
// request metrics. Both wrap the response writer to observe status codes
// without interfering with streaming responses.
package middleware
