package server

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ShadowFalcon24/atomic-cloud/internal/transport"
)

// AuthInterceptor rejects calls that do not carry token.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		got, ok := transport.TokenFromContext(ctx)
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid controller token")
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its status and duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		requestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil && code != codes.NotFound {
			logger.Warn("call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("call", fields...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a gRPC server with logging and token auth.
func NewGRPCServer(token string, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(token)),
	}, opts...)
	return grpc.NewServer(opts...)
}
