package dataapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/observability"
)

// RequestLoggerInterceptor returns a UnaryServerInterceptor that handles
// structured logging and request metrics. It resolves or generates an
// x-request-id, injects a contextual logger for the handler, and records
// the duration and status of the call.
func RequestLoggerInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		// metadata map keys are normalized to lowercase
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				reqID = ids[0]
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}

		rpcLogger := base.With(
			slog.String("request_id", reqID),
			slog.String("rpc_method", info.FullMethod),
		)

		newCtx := logger.WithContext(ctx, rpcLogger)

		resp, err := handler(newCtx, req)

		duration := time.Since(start)
		st, _ := status.FromError(err)
		code := st.Code()

		observability.DataPlaneGrpcDuration.WithLabelValues(info.FullMethod, code.String()).Observe(duration.Seconds())
		observability.DataPlaneGrpcTotal.WithLabelValues(info.FullMethod, code.String()).Inc()

		// Client errors stay at Info; only system failures alert.
		level := slog.LevelInfo
		switch code {
		case codes.Internal, codes.Unavailable, codes.DataLoss, codes.Unknown:
			level = slog.LevelError
		case codes.DeadlineExceeded, codes.Unimplemented:
			level = slog.LevelWarn
		}

		rpcLogger.Log(newCtx, level, "grpc request completed",
			slog.String("code", code.String()),
			slog.Duration("duration", duration),
			slog.String("peer_addr", getPeerAddr(ctx)),
		)

		return resp, err
	}
}

// getPeerAddr extracts the client address safely.
func getPeerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok {
		return p.Addr.String()
	}
	return "unknown"
}
