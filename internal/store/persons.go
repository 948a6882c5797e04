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

// Compile-time check that PersonStore satisfies the engine contract.
var _ matchengine.PropertySource = (*PersonStore)(nil)

// PersonStore reads person and group property bags. An unknown distinct id
// or group key yields an empty bag, not an error: the matcher's absence
// semantics (is_not / is_not_set) depend on that distinction.
type PersonStore struct {
	db *pgxpool.Pool
}

// NewPersonStore creates a new person store with the given pool.
func NewPersonStore(db *pgxpool.Pool) *PersonStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PersonStore{db: db}
}

// PersonProperties returns the property bag of the person behind distinctID.
func (s *PersonStore) PersonProperties(ctx context.Context, teamID int64, distinctID string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT p.properties
		FROM persons p
		JOIN person_distinct_ids pd ON pd.person_id = p.id
		WHERE pd.team_id = $1 AND pd.distinct_id = $2
	`, teamID, distinctID).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read person properties: %w", err)
	}

	return decodeProperties(raw)
}

// PersonIDByDistinctID resolves the canonical person id behind a distinct
// id. Returns (0, false, nil) when no person exists yet.
func (s *PersonStore) PersonIDByDistinctID(ctx context.Context, teamID int64, distinctID string) (int64, bool, error) {
	var personID int64
	err := s.db.QueryRow(ctx, `
		SELECT person_id FROM person_distinct_ids
		WHERE team_id = $1 AND distinct_id = $2
	`, teamID, distinctID).Scan(&personID)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve person: %w", err)
	}
	return personID, true, nil
}

// CreatePerson inserts a person with the given properties and links the
// distinct id to it.
func (s *PersonStore) CreatePerson(ctx context.Context, teamID int64, distinctID string, properties map[string]any) (int64, error) {
	raw, err := json.Marshal(properties)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize person properties: %w", err)
	}

	var personID int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO persons (team_id, properties) VALUES ($1, $2) RETURNING id
	`, teamID, raw).Scan(&personID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert person: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO person_distinct_ids (team_id, distinct_id, person_id) VALUES ($1, $2, $3)
	`, teamID, distinctID, personID)
	if err != nil {
		return 0, fmt.Errorf("failed to link distinct id: %w", err)
	}

	return personID, nil
}

// GroupProperties returns the property bag of one group instance.
func (s *PersonStore) GroupProperties(ctx context.Context, teamID int64, groupTypeIndex int, groupKey string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT properties FROM group_instances
		WHERE team_id = $1 AND group_type_index = $2 AND group_key = $3
	`, teamID, groupTypeIndex, groupKey).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read group properties: %w", err)
	}

	return decodeProperties(raw)
}

// UpsertGroup writes a group instance's property bag, replacing any
// previous document wholesale.
func (s *PersonStore) UpsertGroup(ctx context.Context, teamID int64, groupTypeIndex int, groupKey string, properties map[string]any) error {
	raw, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to serialize group properties: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO group_instances (team_id, group_type_index, group_key, properties)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, group_type_index, group_key)
		DO UPDATE SET properties = EXCLUDED.properties
	`, teamID, groupTypeIndex, groupKey, raw)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

func decodeProperties(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	properties := make(map[string]any)
	if err := json.Unmarshal(raw, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties document: %w", err)
	}
	return properties, nil
}
