// Package dataapi implements the gRPC data plane for flag evaluation.
// It handles the high-performance read path used by client SDKs.
package dataapi

import (
	"log/slog"

	"google.golang.org/grpc"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/validation"
	skuldv1 "github.com/skuld-io/skuld/proto/skuld/v1"
)

// API implements the gRPC DataPlane service defined in the proto contract.
// It embeds UnimplementedDataPlaneServer for forward compatibility.
type API struct {
	skuldv1.UnimplementedDataPlaneServer

	snapshots cache.SnapshotProvider
	matcher   *matchengine.Matcher
	logger    *slog.Logger
}

// NewAPI creates a new data plane API instance.
func NewAPI(snapshots cache.SnapshotProvider, matcher *matchengine.Matcher, logger *slog.Logger) *API {
	if snapshots == nil {
		panic("dataapi: snapshot provider cannot be nil")
	}
	validation.AssertNotNil(matcher, "matcher")
	if logger == nil {
		logger = slog.Default()
	}

	return &API{
		snapshots: snapshots,
		matcher:   matcher,
		logger:    logger,
	}
}

// Register connects this implementation to the grpc.Server engine.
func (a *API) Register(grpcServer *grpc.Server) {
	skuldv1.RegisterDataPlaneServer(grpcServer, a)
}
