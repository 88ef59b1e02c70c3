// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"
	"net/http"

	"connectrpc.com/connect"
)

const (
	// TokenHeader is the header name for the access token.
	TokenHeader = "X-Hibiki-Token"
)

// tokenInterceptor rejects calls whose TokenHeader does not match the
// configured token. An empty token disables the check.
type tokenInterceptor struct {
	token string
}

// NewTokenInterceptor creates an interceptor that validates access tokens
// on unary and streaming handlers.
func NewTokenInterceptor(token string) connect.Interceptor {
	return &tokenInterceptor{token: token}
}

func (i *tokenInterceptor) check(header http.Header) error {
	if i.token == "" {
		return nil
	}
	// Extract token from metadata
	got := header.Get(TokenHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(i.token)) != 1 {
		return connect.NewError(connect.CodeUnauthenticated, nil)
	}
	return nil
}

func (i *tokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		if err := i.check(req.Header()); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *tokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *tokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.check(conn.RequestHeader()); err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

// clientTokenInterceptor attaches a token to outgoing calls.
type clientTokenInterceptor struct {
	token string
}

// NewClientTokenInterceptor creates a client interceptor that sends token in
// TokenHeader. An empty token sends nothing.
func NewClientTokenInterceptor(token string) connect.Interceptor {
	return &clientTokenInterceptor{token: token}
}

func (i *clientTokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient && i.token != "" {
			req.Header().Set(TokenHeader, i.token)
		}
		return next(ctx, req)
	}
}

func (i *clientTokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if i.token != "" {
			conn.RequestHeader().Set(TokenHeader, i.token)
		}
		return conn
	}
}

func (i *clientTokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
