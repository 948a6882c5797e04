// Package matchengine implements deterministic feature flag matching:
// ordered condition groups, rollout-percentage gating, multivariate
// bucketing, super conditions, cohort expansion and experience-continuity
// hash key substitution. The engine is a pure evaluator; persistence and
// transport live in the surrounding packages.
package matchengine

import "encoding/json"

// PropertyType discriminates where a property filter reads its values from.
type PropertyType string

const (
	PropertyTypePerson PropertyType = "person"
	PropertyTypeGroup  PropertyType = "group"
	PropertyTypeCohort PropertyType = "cohort"
)

// Operator is the closed set of property comparison operators.
// The engine evaluates them in a single exhaustive switch (see property.go);
// unknown operators are a definitional error and never match.
type Operator string

const (
	OperatorExact        Operator = "exact"
	OperatorIsNot        Operator = "is_not"
	OperatorIContains    Operator = "icontains"
	OperatorNotIContains Operator = "not_icontains"
	OperatorRegex        Operator = "regex"
	OperatorNotRegex     Operator = "not_regex"
	OperatorIsSet        Operator = "is_set"
	OperatorIsNotSet     Operator = "is_not_set"
	OperatorGT           Operator = "gt"
	OperatorGTE          Operator = "gte"
	OperatorLT           Operator = "lt"
	OperatorLTE          Operator = "lte"
)

// PropertyFilter is a single property condition inside a condition group.
// For cohort-type filters Value holds the cohort id; for group-type filters
// GroupTypeIndex selects which group's property bag is consulted.
type PropertyFilter struct {
	Key            string       `json:"key"`
	Type           PropertyType `json:"type"`
	Operator       Operator     `json:"operator"`
	Value          any          `json:"value"`
	GroupTypeIndex *int         `json:"group_type_index,omitempty"`
	Negation       bool         `json:"negation,omitempty"`
}

// ConditionGroup is one AND-group of property filters plus its rollout gate.
// A nil RolloutPercentage means 100. Variant, when set, forces the variant
// for identifiers matched by this group.
type ConditionGroup struct {
	Properties        []PropertyFilter `json:"properties"`
	RolloutPercentage *float64         `json:"rollout_percentage,omitempty"`
	Variant           *string          `json:"variant,omitempty"`
}

// Variant is one arm of a multivariate flag.
type Variant struct {
	Key               string  `json:"key"`
	RolloutPercentage float64 `json:"rollout_percentage"`
}

// MultivariateConfig holds the ordered variant rollout table. Percentages
// should sum to 100 but the engine never assumes exact normalization.
type MultivariateConfig struct {
	Variants []Variant `json:"variants"`
}

// FeatureFlag is one flag definition as served to the engine. Inactive and
// soft-deleted flags are filtered out before evaluation.
type FeatureFlag struct {
	ID                         int64                      `json:"id"`
	TeamID                     int64                      `json:"team_id"`
	Key                        string                     `json:"key"`
	Active                     bool                       `json:"active"`
	Deleted                    bool                       `json:"deleted"`
	Groups                     []ConditionGroup           `json:"groups"`
	Multivariate               *MultivariateConfig        `json:"multivariate,omitempty"`
	SuperGroups                []ConditionGroup           `json:"super_groups,omitempty"`
	AggregationGroupTypeIndex  *int                       `json:"aggregation_group_type_index,omitempty"`
	EnsureExperienceContinuity bool                       `json:"ensure_experience_continuity"`
	Payloads                   map[string]json.RawMessage `json:"payloads,omitempty"`
}

// RolloutFor returns the effective rollout percentage of a group,
// defaulting to 100 when unset.
func (g ConditionGroup) RolloutFor() float64 {
	if g.RolloutPercentage == nil {
		return 100
	}
	return *g.RolloutPercentage
}

// VariantKeys returns the configured variant keys in list order.
func (f *FeatureFlag) VariantKeys() []string {
	if f.Multivariate == nil {
		return nil
	}
	keys := make([]string, 0, len(f.Multivariate.Variants))
	for _, v := range f.Multivariate.Variants {
		keys = append(keys, v.Key)
	}
	return keys
}

// HasValidVariant reports whether key is one of the configured variants.
func (f *FeatureFlag) HasValidVariant(key string) bool {
	if f.Multivariate == nil {
		return false
	}
	for _, v := range f.Multivariate.Variants {
		if v.Key == key {
			return true
		}
	}
	return false
}

// MatchReason explains which branch of the evaluation produced the result.
type MatchReason string

const (
	ReasonConditionMatch      MatchReason = "condition_match"
	ReasonNoConditionMatch    MatchReason = "no_condition_match"
	ReasonOutOfRolloutBound   MatchReason = "out_of_rollout_bound"
	ReasonSuperConditionValue MatchReason = "super_condition_value"
	ReasonNoGroupType         MatchReason = "no_group_type"
)

// MatchResult is the verdict for one flag. It is a pure value, recomputed on
// every evaluation.
type MatchResult struct {
	Matched        bool            `json:"matched"`
	Variant        string          `json:"variant,omitempty"`
	Reason         MatchReason     `json:"reason"`
	ConditionIndex *int            `json:"condition_index,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// Cohort is a stored cohort definition. Static cohorts carry an explicit
// membership list in the store; dynamic cohorts carry a filter tree.
type Cohort struct {
	ID       int64       `json:"id"`
	TeamID   int64       `json:"team_id"`
	IsStatic bool        `json:"is_static"`
	Filters  *CohortNode `json:"filters,omitempty"`
}

func indexPtr(i int) *int { return &i }
