package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skuld-io/skuld/internal/matchengine"
)

// Compile-time check that CohortStore satisfies the engine contract.
var _ matchengine.CohortSource = (*CohortStore)(nil)

// CohortStore reads cohort definitions and static membership.
type CohortStore struct {
	db *pgxpool.Pool
}

// NewCohortStore creates a new cohort store with the given pool.
func NewCohortStore(db *pgxpool.Pool) *CohortStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &CohortStore{db: db}
}

// CohortByID fetches a cohort definition, parsing its stored filter tree.
// Returns (nil, nil) when the cohort does not exist in the team; the engine
// treats that as a definitional error on the referencing filter.
func (s *CohortStore) CohortByID(ctx context.Context, teamID, cohortID int64) (*matchengine.Cohort, error) {
	var (
		cohort matchengine.Cohort
		raw    []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, team_id, is_static, filters
		FROM cohorts
		WHERE team_id = $1 AND id = $2
	`, teamID, cohortID).Scan(&cohort.ID, &cohort.TeamID, &cohort.IsStatic, &raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cohort %d: %w", cohortID, err)
	}

	if len(raw) > 0 {
		node := &matchengine.CohortNode{}
		if err := json.Unmarshal(raw, node); err != nil {
			return nil, fmt.Errorf("failed to decode cohort %d filters: %w", cohortID, err)
		}
		cohort.Filters = node
	}

	return &cohort, nil
}

// IsPersonInStaticCohort tests explicit membership for a static cohort.
func (s *CohortStore) IsPersonInStaticCohort(ctx context.Context, teamID, cohortID int64, distinctID string) (bool, error) {
	var member bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM cohort_people cp
			JOIN person_distinct_ids pd ON pd.person_id = cp.person_id
			WHERE cp.cohort_id = $1 AND pd.team_id = $2 AND pd.distinct_id = $3
		)
	`, cohortID, teamID, distinctID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("failed to test static cohort membership: %w", err)
	}
	return member, nil
}

// CreateCohort inserts a cohort definition; used by the syncer's fixtures
// and integration tests.
func (s *CohortStore) CreateCohort(ctx context.Context, cohort *matchengine.Cohort) error {
	var raw []byte
	if cohort.Filters != nil {
		var err error
		raw, err = json.Marshal(cohort.Filters)
		if err != nil {
			return fmt.Errorf("failed to serialize cohort filters: %w", err)
		}
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO cohorts (team_id, is_static, filters)
		VALUES ($1, $2, $3)
		RETURNING id
	`, cohort.TeamID, cohort.IsStatic, raw).Scan(&cohort.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cohort: %w", err)
	}
	return nil
}

// AddPersonToStaticCohort records explicit membership, ignoring duplicates.
func (s *CohortStore) AddPersonToStaticCohort(ctx context.Context, cohortID, personID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cohort_people (cohort_id, person_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, cohortID, personID)
	if err != nil {
		return fmt.Errorf("failed to add person to cohort: %w", err)
	}
	return nil
}
