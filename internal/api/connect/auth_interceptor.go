// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

// NewControlAuthInterceptor creates an interceptor that validates the control
// token for ControlService methods. An empty token disables the check.
func NewControlAuthInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token == "" {
				return next(ctx, req)
			}

			// Extract token from metadata
			got := req.Header().Get(ControlTokenHeader)
			if got == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			// Validate token
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodePermissionDenied, nil)
			}

			return next(ctx, req)
		}
	}
}

// WithControlToken makes a client send token on every unary call.
func WithControlToken(token string) connect.ClientOption {
	return connect.WithInterceptors(connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set(ControlTokenHeader, token)
			}
			return next(ctx, req)
		}
	}))
}
