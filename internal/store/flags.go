// Package store provides the data access layer for the flag matching
// service. It handles all direct interactions with PostgreSQL using the pgx
// driver; evaluation semantics live in matchengine.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skuld-io/skuld/internal/matchengine"
)

// Postgres error codes used across this package.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ErrFlagExists is returned when creating a flag whose (team, key) already
// exists.
var ErrFlagExists = errors.New("store: flag already exists")

// Compile-time check to verify that FlagStore implements FlagRepository.
var _ FlagRepository = (*FlagStore)(nil)

// flagFilters is the JSONB document stored in the filters column. It holds
// everything the engine needs beyond the flat flag columns.
type flagFilters struct {
	Groups                    []matchengine.ConditionGroup    `json:"groups"`
	Multivariate              *matchengine.MultivariateConfig `json:"multivariate,omitempty"`
	SuperGroups               []matchengine.ConditionGroup    `json:"super_groups,omitempty"`
	AggregationGroupTypeIndex *int                            `json:"aggregation_group_type_index,omitempty"`
	Payloads                  map[string]json.RawMessage      `json:"payloads,omitempty"`
}

// FlagRepository defines the persistence contract for flag definitions.
// Using an interface allows dependency injection and mocking in tests.
type FlagRepository interface {
	// CreateFlag inserts a new flag and populates ID in the struct.
	CreateFlag(ctx context.Context, f *matchengine.FeatureFlag) error

	// ListActiveFlags returns every active, non-deleted flag of a team in
	// insertion order. This is the set the engine evaluates.
	ListActiveFlags(ctx context.Context, teamID int64) ([]matchengine.FeatureFlag, error)

	// SoftDeleteFlag marks a flag deleted without removing the row.
	SoftDeleteFlag(ctx context.Context, teamID int64, key string) error

	// TeamsChangedSince returns team ids whose flags changed after the
	// given instant; the syncer uses it to rebuild snapshots.
	TeamsChangedSince(ctx context.Context, since time.Time) ([]int64, error)
}

// FlagStore is the FlagRepository implementation backed by PostgreSQL.
type FlagStore struct {
	db *pgxpool.Pool
}

// NewFlagStore creates a new repository instance with the given pool.
func NewFlagStore(db *pgxpool.Pool) *FlagStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &FlagStore{db: db}
}

// CreateFlag inserts a flag, serializing its condition document into the
// filters column.
func (s *FlagStore) CreateFlag(ctx context.Context, f *matchengine.FeatureFlag) error {
	filters, err := json.Marshal(flagFilters{
		Groups:                    f.Groups,
		Multivariate:              f.Multivariate,
		SuperGroups:               f.SuperGroups,
		AggregationGroupTypeIndex: f.AggregationGroupTypeIndex,
		Payloads:                  f.Payloads,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize flag filters: %w", err)
	}

	query := `
		INSERT INTO feature_flags (team_id, key, active, deleted, filters, ensure_experience_continuity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = s.db.QueryRow(ctx, query,
		f.TeamID,
		f.Key,
		f.Active,
		f.Deleted,
		filters,
		f.EnsureExperienceContinuity,
	).Scan(&f.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: key %q in team %d", ErrFlagExists, f.Key, f.TeamID)
		}
		return fmt.Errorf("failed to insert flag: %w", err)
	}

	return nil
}

// ListActiveFlags fetches the evaluable flag set of a team. Rows whose
// filters document fails to decode are skipped rather than failing the
// whole list; one malformed flag must not take down sibling flags.
func (s *FlagStore) ListActiveFlags(ctx context.Context, teamID int64) ([]matchengine.FeatureFlag, error) {
	query := `
		SELECT id, team_id, key, active, deleted, filters, ensure_experience_continuity
		FROM feature_flags
		WHERE team_id = $1 AND active = TRUE AND deleted = FALSE
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var flags []matchengine.FeatureFlag
	for rows.Next() {
		var (
			flag       matchengine.FeatureFlag
			rawFilters []byte
		)
		if err := rows.Scan(
			&flag.ID,
			&flag.TeamID,
			&flag.Key,
			&flag.Active,
			&flag.Deleted,
			&rawFilters,
			&flag.EnsureExperienceContinuity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flag row: %w", err)
		}

		var filters flagFilters
		if err := json.Unmarshal(rawFilters, &filters); err != nil {
			continue
		}
		flag.Groups = filters.Groups
		flag.Multivariate = filters.Multivariate
		flag.SuperGroups = filters.SuperGroups
		flag.AggregationGroupTypeIndex = filters.AggregationGroupTypeIndex
		flag.Payloads = filters.Payloads

		flags = append(flags, flag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return flags, nil
}

// SoftDeleteFlag marks the flag deleted and bumps updated_at so snapshot
// rebuilds pick up the change.
func (s *FlagStore) SoftDeleteFlag(ctx context.Context, teamID int64, key string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE feature_flags
		SET deleted = TRUE, updated_at = now()
		WHERE team_id = $1 AND key = $2
	`, teamID, key)
	if err != nil {
		return fmt.Errorf("failed to soft-delete flag %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("flag %q not found in team %d", key, teamID)
	}
	return nil
}

// TeamsChangedSince returns the teams whose flag set changed after since,
// including soft-deletes and deactivations.
func (s *FlagStore) TeamsChangedSince(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT team_id
		FROM feature_flags
		WHERE updated_at > $1
		ORDER BY team_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query changed teams: %w", err)
	}
	defer rows.Close()

	var teams []int64
	for rows.Next() {
		var teamID int64
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		teams = append(teams, teamID)
	}

	return teams, rows.Err()
}
