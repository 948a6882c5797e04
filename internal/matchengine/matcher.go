package matchengine

import (
	"context"
	"errors"
	"log/slog"
)

// PropertySource supplies stored person and group properties. Lookups are
// point reads; the matcher memoizes them per evaluation call.
type PropertySource interface {
	// PersonProperties returns the property bag of the person behind a
	// distinct id, or an empty bag when the person is unknown.
	PersonProperties(ctx context.Context, teamID int64, distinctID string) (map[string]any, error)

	// GroupProperties returns the property bag of one group instance.
	GroupProperties(ctx context.Context, teamID int64, groupTypeIndex int, groupKey string) (map[string]any, error)
}

// CohortSource supplies cohort definitions and static membership tests.
type CohortSource interface {
	CohortByID(ctx context.Context, teamID, cohortID int64) (*Cohort, error)
	IsPersonInStaticCohort(ctx context.Context, teamID, cohortID int64, distinctID string) (bool, error)
}

// OverrideSource persists experience-continuity hash key overrides.
// EnsureOverride is an idempotent get-or-create: the first stored value for
// (team, person, flag key) always wins, concurrent writers never error, and
// a not-yet-existing person degrades to the raw hash key for this call.
type OverrideSource interface {
	EnsureOverride(ctx context.Context, teamID int64, distinctID, flagKey, hashKey string) (string, error)
	LookupOverrides(ctx context.Context, teamID int64, distinctIDs []string) (map[string]string, error)
}

// EvaluationRequest is one identity-resolution call against a batch of flags.
type EvaluationRequest struct {
	TeamID     int64
	DistinctID string

	// PersonPropertyOverrides take precedence over stored person
	// properties and are treated as fully known values.
	PersonPropertyOverrides map[string]any

	// GroupPropertyOverrides are keyed by group type index.
	GroupPropertyOverrides map[int]map[string]any

	// Groups maps group type name to the group key being evaluated.
	Groups map[string]string

	// GroupTypeMapping maps group type index to group type name.
	GroupTypeMapping map[int]string

	// HashKeyOverride requests continuity substitution explicitly, e.g.
	// at the anonymous-to-identified transition.
	HashKeyOverride string
}

// EvaluationResult is the batch verdict. Per-flag results stay valid even
// when ErrorsWhileComputing is set for an unrelated flag.
type EvaluationResult struct {
	Flags                map[string]MatchResult
	ErrorsWhileComputing bool
}

// Matcher wires the bucketer, property matcher, cohort expander and variant
// selector together across a batch of flags. It holds no per-request state;
// concurrent evaluation calls share nothing but the injected sources.
type Matcher struct {
	props     PropertySource
	cohorts   CohortSource
	overrides OverrideSource
	logger    *slog.Logger
}

// NewMatcher creates a Matcher. Sources may be nil in offline/local
// evaluation setups; the matcher then works purely from request overrides.
// If logger is nil, it defaults to slog.Default().
func NewMatcher(props PropertySource, cohorts CohortSource, overrides OverrideSource, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		props:     props,
		cohorts:   cohorts,
		overrides: overrides,
		logger:    logger,
	}
}

// evalState carries memoized lookups for a single evaluation call.
type evalState struct {
	req           EvaluationRequest
	personProps   map[string]any
	personLoaded  bool
	groupProps    map[int]map[string]any
	cohortCache   map[int64]*Cohort
	hashOverrides map[string]string
	hadErrors     bool
}

// MatchAll evaluates every flag for one identity. Inactive and soft-deleted
// flags are skipped. A flag that cannot be fully evaluated still yields a
// definite result, defaulting toward not matched, and flips the batch error
// bit; it never fails the whole batch.
func (m *Matcher) MatchAll(ctx context.Context, flags []FeatureFlag, req EvaluationRequest) EvaluationResult {
	st := &evalState{
		req:         req,
		groupProps:  make(map[int]map[string]any),
		cohortCache: make(map[int64]*Cohort),
	}

	m.prepareContinuity(ctx, flags, st)

	results := make(map[string]MatchResult, len(flags))
	for i := range flags {
		flag := &flags[i]
		if !flag.Active || flag.Deleted {
			continue
		}
		results[flag.Key] = m.matchOne(ctx, flag, st)
	}

	return EvaluationResult{Flags: results, ErrorsWhileComputing: st.hadErrors}
}

// MatchFlag evaluates a single flag. Convenience wrapper over the batch path.
func (m *Matcher) MatchFlag(ctx context.Context, flag *FeatureFlag, req EvaluationRequest) MatchResult {
	res := m.MatchAll(ctx, []FeatureFlag{*flag}, req)
	return res.Flags[flag.Key]
}

// prepareContinuity writes and reads hash key overrides for
// continuity-enabled flags before any hashing happens.
func (m *Matcher) prepareContinuity(ctx context.Context, flags []FeatureFlag, st *evalState) {
	if m.overrides == nil {
		return
	}

	needsContinuity := false
	for i := range flags {
		if flags[i].EnsureExperienceContinuity && flags[i].Active && !flags[i].Deleted {
			needsContinuity = true
			break
		}
	}
	if !needsContinuity {
		return
	}

	if st.req.HashKeyOverride != "" {
		for i := range flags {
			flag := &flags[i]
			if !flag.EnsureExperienceContinuity || !flag.Active || flag.Deleted {
				continue
			}
			if _, err := m.overrides.EnsureOverride(ctx, st.req.TeamID, st.req.DistinctID, flag.Key, st.req.HashKeyOverride); err != nil {
				// Degrade to evaluating without continuity for this call.
				m.logger.Warn("hash key override write failed",
					slog.String("flag_key", flag.Key),
					slog.String("error", err.Error()),
				)
				st.hadErrors = true
			}
		}
	}

	overrides, err := m.overrides.LookupOverrides(ctx, st.req.TeamID, []string{st.req.DistinctID})
	if err != nil {
		m.logger.Warn("hash key override lookup failed", slog.String("error", err.Error()))
		st.hadErrors = true
		return
	}
	st.hashOverrides = overrides
}

// matchOne evaluates a single flag with panic isolation.
func (m *Matcher) matchOne(ctx context.Context, flag *FeatureFlag, st *evalState) (result MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("flag evaluation panicked",
				slog.String("flag_key", flag.Key),
				slog.Any("panic", r),
			)
			st.hadErrors = true
			result = MatchResult{Matched: false, Reason: ReasonNoConditionMatch}
		}
	}()
	return m.evaluateFlag(ctx, flag, st)
}

func (m *Matcher) evaluateFlag(ctx context.Context, flag *FeatureFlag, st *evalState) MatchResult {
	// Resolve the aggregation identity: person-level flags hash the
	// distinct id, group-level flags hash the group key of their type.
	identifier := st.req.DistinctID
	var bag map[string]any

	if flag.AggregationGroupTypeIndex != nil {
		idx := *flag.AggregationGroupTypeIndex
		name, okName := st.req.GroupTypeMapping[idx]
		key, okKey := "", false
		if okName {
			key, okKey = st.req.Groups[name]
		}
		if !okName || !okKey || key == "" {
			return MatchResult{Matched: false, Reason: ReasonNoGroupType}
		}
		identifier = key
		bag = m.groupBag(ctx, idx, key, st)
	} else {
		bag = m.personBag(ctx, st)
	}

	hashIdentifier := identifier
	if flag.EnsureExperienceContinuity {
		if override, ok := st.hashOverrides[flag.Key]; ok && override != "" {
			hashIdentifier = override
		}
	}

	// Super conditions gate before normal groups. A resolvable super group
	// fully overrides the outcome in both directions; an unresolvable
	// property falls through.
	if len(flag.SuperGroups) > 0 {
		if result, decided := m.evaluateSuperGroups(ctx, flag, bag, hashIdentifier, st); decided {
			return result
		}
	}

	groups := flag.Groups
	if m.cohorts != nil {
		groups = ExpandCohorts(groups, func(cohortID int64) (*Cohort, error) {
			return m.resolveCohort(ctx, cohortID, st)
		})
	}

	lastIndex := -1
	for i, group := range groups {
		lastIndex = i
		ok := m.groupMatches(ctx, flag, group, bag, st)
		if !ok {
			continue
		}

		// First property-matching group wins; its rollout gates on/off and
		// evaluation stops here either way.
		bucket := Bucket(RolloutSalt(flag.Key), hashIdentifier)
		if bucket >= group.RolloutFor()/100 {
			return MatchResult{
				Matched:        false,
				Reason:         ReasonOutOfRolloutBound,
				ConditionIndex: indexPtr(i),
			}
		}

		result := MatchResult{
			Matched:        true,
			Reason:         ReasonConditionMatch,
			ConditionIndex: indexPtr(i),
		}
		result.Variant = m.resolveVariant(flag, group, hashIdentifier)
		result.Payload = payloadFor(flag, result.Variant)
		return result
	}

	result := MatchResult{Matched: false, Reason: ReasonNoConditionMatch}
	if lastIndex >= 0 {
		result.ConditionIndex = indexPtr(lastIndex)
	}
	return result
}

// evaluateSuperGroups returns (result, true) when a super group decides the
// outcome, or (zero, false) when every super group was unresolvable.
func (m *Matcher) evaluateSuperGroups(ctx context.Context, flag *FeatureFlag, bag map[string]any, hashIdentifier string, st *evalState) (MatchResult, bool) {
	for i, group := range flag.SuperGroups {
		propsMatch := true
		unresolvable := false

		for _, filter := range group.Properties {
			ok, err := MatchProperty(filter, bag)
			if errors.Is(err, ErrPropertyMissing) {
				unresolvable = true
				break
			}
			if err != nil {
				m.logger.Warn("super condition filter failed",
					slog.String("flag_key", flag.Key),
					slog.String("property", filter.Key),
					slog.String("error", err.Error()),
				)
				unresolvable = true
				break
			}
			if !ok {
				propsMatch = false
				break
			}
		}

		if unresolvable {
			continue
		}

		matched := propsMatch
		if matched {
			bucket := Bucket(RolloutSalt(flag.Key), hashIdentifier)
			matched = bucket < group.RolloutFor()/100
		}

		result := MatchResult{
			Matched:        matched,
			Reason:         ReasonSuperConditionValue,
			ConditionIndex: indexPtr(i),
		}
		if matched {
			result.Variant = m.resolveVariant(flag, group, hashIdentifier)
			result.Payload = payloadFor(flag, result.Variant)
		}
		return result, true
	}

	return MatchResult{}, false
}

// groupMatches reports whether every property filter of a group matches.
// Definitional errors (bad regex, unknown operator, unresolvable cohort)
// make the single filter not match rather than poisoning sibling filters.
func (m *Matcher) groupMatches(ctx context.Context, flag *FeatureFlag, group ConditionGroup, bag map[string]any, st *evalState) bool {
	for _, filter := range group.Properties {
		var ok bool
		var err error

		if filter.Type == PropertyTypeCohort {
			ok, err = m.cohortFilterMatches(ctx, filter, bag, st)
		} else {
			ok, err = MatchProperty(filter, bag)
		}

		if errors.Is(err, ErrPropertyMissing) {
			return false
		}
		if err != nil {
			m.logger.Warn("property filter failed",
				slog.String("flag_key", flag.Key),
				slog.String("property", filter.Key),
				slog.String("error", err.Error()),
			)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// cohortFilterMatches tests membership for a cohort filter that survived
// expansion: static cohorts via the store, dynamic cohorts by walking their
// filter tree over the person properties.
func (m *Matcher) cohortFilterMatches(ctx context.Context, filter PropertyFilter, bag map[string]any, st *evalState) (bool, error) {
	if m.cohorts == nil {
		return false, errors.New("matchengine: no cohort source configured")
	}

	cohortID, ok := CohortIDFromValue(filter.Value)
	if !ok {
		return false, errors.New("matchengine: cohort filter value is not a cohort id")
	}

	cohort, err := m.resolveCohort(ctx, cohortID, st)
	if err != nil {
		st.hadErrors = true
		return false, err
	}
	if cohort == nil {
		return false, errors.New("matchengine: cohort not found")
	}

	if cohort.IsStatic {
		member, err := m.cohorts.IsPersonInStaticCohort(ctx, st.req.TeamID, cohortID, st.req.DistinctID)
		if err != nil {
			st.hadErrors = true
			return false, err
		}
		return member, nil
	}

	if cohort.Filters == nil {
		return false, nil
	}
	return cohort.Filters.Evaluate(bag)
}

func (m *Matcher) resolveCohort(ctx context.Context, cohortID int64, st *evalState) (*Cohort, error) {
	if cohort, ok := st.cohortCache[cohortID]; ok {
		return cohort, nil
	}
	cohort, err := m.cohorts.CohortByID(ctx, st.req.TeamID, cohortID)
	if err != nil {
		return nil, err
	}
	st.cohortCache[cohortID] = cohort
	return cohort, nil
}

// resolveVariant applies a group's variant override when it names a
// configured variant, otherwise buckets into the multivariate table.
// The first matching group in list order decided the override; later groups
// never get a say.
func (m *Matcher) resolveVariant(flag *FeatureFlag, group ConditionGroup, hashIdentifier string) string {
	if group.Variant != nil && flag.HasValidVariant(*group.Variant) {
		return *group.Variant
	}
	if flag.Multivariate != nil {
		return SelectVariant(flag, hashIdentifier)
	}
	return ""
}

// payloadFor returns the configured payload for a matched result: keyed by
// the variant, or by "true" for a plain boolean match.
func payloadFor(flag *FeatureFlag, variant string) []byte {
	if len(flag.Payloads) == 0 {
		return nil
	}
	key := "true"
	if variant != "" {
		key = variant
	}
	return flag.Payloads[key]
}

// personBag returns stored person properties overlaid with per-request
// overrides. Store failures degrade to overrides-only evaluation and set
// the batch error bit.
func (m *Matcher) personBag(ctx context.Context, st *evalState) map[string]any {
	if !st.personLoaded {
		st.personLoaded = true
		st.personProps = make(map[string]any)

		if m.props != nil {
			stored, err := m.props.PersonProperties(ctx, st.req.TeamID, st.req.DistinctID)
			if err != nil {
				m.logger.Warn("person property lookup failed",
					slog.String("distinct_id", st.req.DistinctID),
					slog.String("error", err.Error()),
				)
				st.hadErrors = true
			} else {
				for k, v := range stored {
					st.personProps[k] = v
				}
			}
		}
		for k, v := range st.req.PersonPropertyOverrides {
			st.personProps[k] = v
		}
	}
	return st.personProps
}

// groupBag mirrors personBag for one group type index.
func (m *Matcher) groupBag(ctx context.Context, groupTypeIndex int, groupKey string, st *evalState) map[string]any {
	if bag, ok := st.groupProps[groupTypeIndex]; ok {
		return bag
	}

	bag := make(map[string]any)
	if m.props != nil {
		stored, err := m.props.GroupProperties(ctx, st.req.TeamID, groupTypeIndex, groupKey)
		if err != nil {
			m.logger.Warn("group property lookup failed",
				slog.Int("group_type_index", groupTypeIndex),
				slog.String("group_key", groupKey),
				slog.String("error", err.Error()),
			)
			st.hadErrors = true
		} else {
			for k, v := range stored {
				bag[k] = v
			}
		}
	}
	for k, v := range st.req.GroupPropertyOverrides[groupTypeIndex] {
		bag[k] = v
	}

	st.groupProps[groupTypeIndex] = bag
	return bag
}
