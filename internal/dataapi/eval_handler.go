package dataapi

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/observability"
	skuldv1 "github.com/skuld-io/skuld/proto/skuld/v1"
)

// EvaluateFlags computes the state of every requested flag for one distinct
// id using a read-through snapshot lookup.
//
// Flow: L1 (memory) -> L2 (Redis) -> PostgreSQL -> matcher -> response
//
// It returns:
//   - OK with per-flag results (partial failures surface via
//     errors_while_computing, never as an RPC error).
//   - INVALID_ARGUMENT if team_id or distinct_id is missing.
//   - INTERNAL if the flag snapshot cannot be loaded at all.
func (a *API) EvaluateFlags(ctx context.Context, req *skuldv1.EvaluateRequest) (*skuldv1.EvaluateResponse, error) {
	log := logger.FromContext(ctx)

	if req.GetTeamId() <= 0 {
		log.Warn("bad request: missing team_id")
		return nil, status.Error(codes.InvalidArgument, "team_id is required")
	}
	if req.GetDistinctId() == "" {
		log.Warn("bad request: missing distinct_id")
		return nil, status.Error(codes.InvalidArgument, "distinct_id is required")
	}

	log.Debug("evaluating flags",
		slog.Int64("team_id", req.GetTeamId()),
		slog.String("distinct_id", req.GetDistinctId()),
	)

	snap, err := a.snapshots.SnapshotForTeam(ctx, req.GetTeamId())
	if err != nil {
		log.Error("failed to load flag snapshot",
			slog.Int64("team_id", req.GetTeamId()),
			slog.String("error", err.Error()),
		)
		return nil, status.Error(codes.Internal, "failed to load flag configuration")
	}

	flags := snap.Flags
	if keys := req.GetFlagKeys(); len(keys) > 0 {
		flags = filterFlags(flags, keys)
	}

	result := a.matcher.MatchAll(ctx, flags, evalRequestFromProto(req))

	resp := &skuldv1.EvaluateResponse{
		Flags:                make(map[string]*skuldv1.FlagResult, len(result.Flags)),
		ErrorsWhileComputing: result.ErrorsWhileComputing,
	}
	for key, match := range result.Flags {
		observability.EvaluationsTotal.WithLabelValues(string(match.Reason)).Inc()
		resp.Flags[key] = flagResultToProto(match)
	}
	if result.ErrorsWhileComputing {
		observability.EvaluationErrorsTotal.Inc()
	}

	return resp, nil
}

// evalRequestFromProto converts the wire request into the engine request.
// Property values arrive JSON-encoded; values that do not parse are kept
// as plain strings.
func evalRequestFromProto(req *skuldv1.EvaluateRequest) matchengine.EvaluationRequest {
	out := matchengine.EvaluationRequest{
		TeamID:          req.GetTeamId(),
		DistinctID:      req.GetDistinctId(),
		Groups:          req.GetGroups(),
		HashKeyOverride: req.GetHashKeyOverride(),
	}

	if props := req.GetPersonProperties(); len(props) > 0 {
		out.PersonPropertyOverrides = decodePropertyMap(props)
	}

	if groupProps := req.GetGroupProperties(); len(groupProps) > 0 {
		out.GroupPropertyOverrides = make(map[int]map[string]any, len(groupProps))
		for idx, gp := range groupProps {
			if gp == nil {
				continue
			}
			out.GroupPropertyOverrides[int(idx)] = decodePropertyMap(gp.GetProperties())
		}
	}

	if mapping := req.GetGroupTypeMapping(); len(mapping) > 0 {
		out.GroupTypeMapping = make(map[int]string, len(mapping))
		for idx, name := range mapping {
			out.GroupTypeMapping[int(idx)] = name
		}
	}

	return out
}

func decodePropertyMap(props map[string]string) map[string]any {
	out := make(map[string]any, len(props))
	for key, raw := range props {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			out[key] = raw
			continue
		}
		out[key] = v
	}
	return out
}

func filterFlags(flags []matchengine.FeatureFlag, keys []string) []matchengine.FeatureFlag {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	out := make([]matchengine.FeatureFlag, 0, len(keys))
	for i := range flags {
		if _, ok := wanted[flags[i].Key]; ok {
			out = append(out, flags[i])
		}
	}
	return out
}

func flagResultToProto(match matchengine.MatchResult) *skuldv1.FlagResult {
	out := &skuldv1.FlagResult{
		Matched: match.Matched,
		Variant: match.Variant,
		Reason:  string(match.Reason),
		Payload: match.Payload,
	}
	if match.ConditionIndex != nil {
		out.ConditionIndex = int32(*match.ConditionIndex)
		out.HasConditionIndex = true
	}
	return out
}
