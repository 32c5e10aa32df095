package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sserr "github.com/StricklySoft/tokengate/pkg/errors"
)

// UnaryServerInterceptor returns a gRPC unary interceptor applying the same
// gate as [HTTPMiddleware] to the "authorization" metadata value.
// Rejections become Unauthenticated; failures of the gate itself become
// Internal, Unavailable or DeadlineExceeded.
func UnaryServerInterceptor(validator TokenValidator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, validator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of
// [UnaryServerInterceptor]. Handlers see the enriched context through
// the wrapped stream.
func StreamServerInterceptor(validator TokenValidator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), validator)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticateGRPC(ctx context.Context, validator TokenValidator) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get(strings.ToLower(HeaderAuthorization))
	if len(values) == 0 {
		return ctx, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}

	ctx, rejection := authenticate(ctx, validator, values[0])
	if rejection != nil {
		return ctx, status.Error(grpcCode(rejection), rejection.Message)
	}
	return ctx, nil
}

func grpcCode(err error) codes.Code {
	switch {
	case sserr.IsTimeout(err):
		return codes.DeadlineExceeded
	case sserr.IsUnavailable(err):
		return codes.Unavailable
	case sserr.IsInternal(err):
		return codes.Internal
	default:
		return codes.Unauthenticated
	}
}

// wrappedServerStream overrides Context so stream handlers see the
// identity added by the interceptor.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the enriched context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
