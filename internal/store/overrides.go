package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skuld-io/skuld/internal/matchengine"
	"github.com/skuld-io/skuld/internal/observability"
)

// Compile-time check that OverrideStore satisfies the engine contract.
var _ matchengine.OverrideSource = (*OverrideStore)(nil)

// OverrideStore persists experience-continuity hash key overrides.
//
// Rows are written once per (team, person, flag key) and never updated:
// concurrent evaluators race through INSERT .. ON CONFLICT DO NOTHING and
// the loser re-reads whatever value won. A person row deleted mid-insert
// (merge race) surfaces as a foreign key violation and is retried once
// against fresh state; persistent failure degrades to evaluating without
// continuity, which the matcher handles.
type OverrideStore struct {
	db *pgxpool.Pool
}

// NewOverrideStore creates a new override store with the given pool.
func NewOverrideStore(db *pgxpool.Pool) *OverrideStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &OverrideStore{db: db}
}

// EnsureOverride resolves the person behind distinctID and stores hashKey
// for (team, person, flagKey) unless a row already exists; the stored value
// is returned either way.
//
// When the person does not exist yet (a brand-new distinct id), the write
// is skipped gracefully and the raw hashKey is returned so the current
// evaluation proceeds with it.
func (s *OverrideStore) EnsureOverride(ctx context.Context, teamID int64, distinctID, flagKey, hashKey string) (string, error) {
	const attempts = 2

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		stored, err := s.tryEnsure(ctx, teamID, distinctID, flagKey, hashKey)
		if err == nil {
			return stored, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				// Another evaluator won the race; re-read their value.
				observability.OverrideUpsertsTotal.WithLabelValues("retried").Inc()
				lastErr = err
				continue
			case pgForeignKeyViolation:
				// Person deleted between resolution and insert; retry
				// resolves the current canonical person.
				observability.OverrideUpsertsTotal.WithLabelValues("retried").Inc()
				lastErr = err
				continue
			}
		}
		observability.OverrideUpsertsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to ensure hash key override: %w", err)
	}

	observability.OverrideUpsertsTotal.WithLabelValues("failed").Inc()
	return "", fmt.Errorf("failed to ensure hash key override after retry: %w", lastErr)
}

func (s *OverrideStore) tryEnsure(ctx context.Context, teamID int64, distinctID, flagKey, hashKey string) (string, error) {
	// Insert through the distinct-id resolution in one statement so the
	// person id never crosses the wire stale. Zero rows selected means the
	// person does not exist yet; zero rows inserted with an existing
	// person means the override already exists.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO feature_flag_hash_key_overrides (team_id, person_id, feature_flag_key, hash_key)
		SELECT pd.team_id, pd.person_id, $3, $4
		FROM person_distinct_ids pd
		WHERE pd.team_id = $1 AND pd.distinct_id = $2
		ON CONFLICT (team_id, person_id, feature_flag_key) DO NOTHING
	`, teamID, distinctID, flagKey, hashKey)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 1 {
		observability.OverrideUpsertsTotal.WithLabelValues("inserted").Inc()
	} else {
		observability.OverrideUpsertsTotal.WithLabelValues("existing").Inc()
	}

	var stored string
	err = s.db.QueryRow(ctx, `
		SELECT o.hash_key
		FROM feature_flag_hash_key_overrides o
		JOIN person_distinct_ids pd
			ON pd.person_id = o.person_id AND pd.team_id = o.team_id
		WHERE o.team_id = $1 AND pd.distinct_id = $2 AND o.feature_flag_key = $3
	`, teamID, distinctID, flagKey).Scan(&stored)

	if errors.Is(err, pgx.ErrNoRows) {
		// No person row yet: evaluate with the raw hash key for this call.
		return hashKey, nil
	}
	if err != nil {
		return "", err
	}
	return stored, nil
}

// LookupOverrides returns the flag-key to hash-key mapping stored for any of
// the given distinct ids within a team.
func (s *OverrideStore) LookupOverrides(ctx context.Context, teamID int64, distinctIDs []string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT o.feature_flag_key, o.hash_key
		FROM feature_flag_hash_key_overrides o
		JOIN person_distinct_ids pd
			ON pd.person_id = o.person_id AND pd.team_id = o.team_id
		WHERE o.team_id = $1 AND pd.distinct_id = ANY($2)
	`, teamID, distinctIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up hash key overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]string)
	for rows.Next() {
		var flagKey, hashKey string
		if err := rows.Scan(&flagKey, &hashKey); err != nil {
			return nil, fmt.Errorf("failed to scan override row: %w", err)
		}
		overrides[flagKey] = hashKey
	}

	return overrides, rows.Err()
}
