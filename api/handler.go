// File: api/handler.go
// Package api defines the request handler capability.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// RequestHandler turns one relayed request into an optional seed for a new
// machine. OnRequest runs on the loop goroutine and must not block.
type RequestHandler[R, S any] interface {
	OnRequest(req R) (seed S, ok bool)
}

// HandlerFunc adapts a plain function to RequestHandler.
type HandlerFunc[R, S any] func(req R) (S, bool)

// OnRequest calls f(req).
func (f HandlerFunc[R, S]) OnRequest(req R) (S, bool) {
	return f(req)
}
