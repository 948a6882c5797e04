package matchengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBehavioralCohort is returned when a dynamic cohort contains an
// event-based predicate. The engine has no event store; the enclosing
// cohort filter fails closed.
var ErrBehavioralCohort = errors.New("matchengine: behavioral cohort predicate not evaluable")

// NodeKind discriminates cohort filter tree nodes.
type NodeKind string

const (
	NodeAnd        NodeKind = "AND"
	NodeOr         NodeKind = "OR"
	NodeProperty   NodeKind = "property"
	NodeBehavioral NodeKind = "behavioral"
)

// CohortNode is one node of a cohort's filter tree: a recursive sum of
// AND/OR branches, plain property leaves and opaque behavioral leaves.
type CohortNode struct {
	Kind     NodeKind
	Values   []*CohortNode
	Property *PropertyFilter
}

// cohortNodeJSON mirrors the stored JSON layout of a tree node.
type cohortNodeJSON struct {
	Type   string            `json:"type"`
	Values []json.RawMessage `json:"values,omitempty"`

	// Leaf fields.
	Key            string   `json:"key,omitempty"`
	Operator       Operator `json:"operator,omitempty"`
	Value          any      `json:"value,omitempty"`
	GroupTypeIndex *int     `json:"group_type_index,omitempty"`
	Negation       bool     `json:"negation,omitempty"`
}

// UnmarshalJSON decodes a stored tree node. Logical nodes carry type AND/OR
// and a values list; everything else is a leaf, behavioral when tagged so.
func (n *CohortNode) UnmarshalJSON(data []byte) error {
	var raw cohortNodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("matchengine: invalid cohort node: %w", err)
	}

	switch strings.ToUpper(raw.Type) {
	case string(NodeAnd), string(NodeOr):
		n.Kind = NodeKind(strings.ToUpper(raw.Type))
		n.Values = make([]*CohortNode, 0, len(raw.Values))
		for _, child := range raw.Values {
			node := &CohortNode{}
			if err := node.UnmarshalJSON(child); err != nil {
				return err
			}
			n.Values = append(n.Values, node)
		}
		return nil

	case string(NodeBehavioral):
		n.Kind = NodeBehavioral
		return nil

	default:
		n.Kind = NodeProperty
		propType := PropertyTypePerson
		if raw.Type != "" {
			propType = PropertyType(raw.Type)
		}
		n.Property = &PropertyFilter{
			Key:            raw.Key,
			Type:           propType,
			Operator:       raw.Operator,
			Value:          raw.Value,
			GroupTypeIndex: raw.GroupTypeIndex,
			Negation:       raw.Negation,
		}
		return nil
	}
}

// MarshalJSON renders the node back into the stored layout.
func (n *CohortNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case NodeAnd, NodeOr:
		children := make([]json.RawMessage, 0, len(n.Values))
		for _, child := range n.Values {
			b, err := child.MarshalJSON()
			if err != nil {
				return nil, err
			}
			children = append(children, b)
		}
		return json.Marshal(cohortNodeJSON{Type: string(n.Kind), Values: children})
	case NodeBehavioral:
		return json.Marshal(cohortNodeJSON{Type: string(NodeBehavioral)})
	default:
		p := n.Property
		return json.Marshal(cohortNodeJSON{
			Type:           string(p.Type),
			Key:            p.Key,
			Operator:       p.Operator,
			Value:          p.Value,
			GroupTypeIndex: p.GroupTypeIndex,
			Negation:       p.Negation,
		})
	}
}

// FlattenToGroups rewrites the tree into OR-of-AND property filter lists
// when the shape permits a lossless expansion: exactly one OR level whose
// arms are AND groups of plain, non-negated person property filters. Any
// behavioral leaf, negation, nested logic or non-person filter disqualifies
// the whole tree; the caller falls back to membership evaluation, which is
// always safe.
func (n *CohortNode) FlattenToGroups() ([][]PropertyFilter, bool) {
	if n == nil || n.Kind != NodeOr {
		return nil, false
	}

	arms := make([][]PropertyFilter, 0, len(n.Values))
	for _, arm := range n.Values {
		if arm.Kind != NodeAnd {
			return nil, false
		}
		filters := make([]PropertyFilter, 0, len(arm.Values))
		for _, leaf := range arm.Values {
			if leaf.Kind != NodeProperty {
				return nil, false
			}
			p := leaf.Property
			if p.Type != PropertyTypePerson || p.Negation {
				return nil, false
			}
			filters = append(filters, *p)
		}
		arms = append(arms, filters)
	}

	if len(arms) == 0 {
		return nil, false
	}
	return arms, true
}

// Evaluate walks the tree against a person property bag. Behavioral leaves
// surface ErrBehavioralCohort; a missing property makes the leaf false
// without failing the walk (MatchProperty's absence rules still apply for
// is_not / is_not_set).
func (n *CohortNode) Evaluate(properties map[string]any) (bool, error) {
	switch n.Kind {
	case NodeAnd:
		for _, child := range n.Values {
			ok, err := child.Evaluate(properties)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case NodeOr:
		for _, child := range n.Values {
			ok, err := child.Evaluate(properties)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case NodeBehavioral:
		return false, ErrBehavioralCohort

	default:
		match, err := MatchProperty(*n.Property, properties)
		if errors.Is(err, ErrPropertyMissing) {
			match, err = false, nil
		}
		if err != nil {
			return false, err
		}
		if n.Property.Negation {
			return !match, nil
		}
		return match, nil
	}
}

// CohortResolver fetches a cohort definition by id within the current team.
type CohortResolver func(cohortID int64) (*Cohort, error)

// ExpandCohorts rewrites cohort filters embedded in condition groups into
// equivalent plain property groups where that is lossless.
//
// A group qualifies only when its single filter is one cohort filter and the
// referenced cohort is dynamic with a flattenable tree; the replacement
// groups inherit the original rollout percentage and variant override. Every
// other shape (several cohort filters, cohort plus extra properties, static
// cohorts, unresolvable ids, non-flattenable trees) keeps the original group
// untouched, which is always behaviorally safe.
func ExpandCohorts(groups []ConditionGroup, resolve CohortResolver) []ConditionGroup {
	expanded := make([]ConditionGroup, 0, len(groups))

	for _, group := range groups {
		cohortFilters := 0
		for _, p := range group.Properties {
			if p.Type == PropertyTypeCohort {
				cohortFilters++
			}
		}

		if cohortFilters != 1 || len(group.Properties) != 1 {
			expanded = append(expanded, group)
			continue
		}

		cohortID, ok := CohortIDFromValue(group.Properties[0].Value)
		if !ok {
			expanded = append(expanded, group)
			continue
		}

		cohort, err := resolve(cohortID)
		if err != nil || cohort == nil || cohort.IsStatic {
			expanded = append(expanded, group)
			continue
		}

		arms, ok := cohort.Filters.FlattenToGroups()
		if !ok {
			expanded = append(expanded, group)
			continue
		}

		for _, arm := range arms {
			expanded = append(expanded, ConditionGroup{
				Properties:        arm,
				RolloutPercentage: group.RolloutPercentage,
				Variant:           group.Variant,
			})
		}
	}

	return expanded
}

// CohortIDFromValue extracts the cohort id from a cohort filter's value,
// which arrives as a number or numeric string depending on the producer.
func CohortIDFromValue(v any) (int64, bool) {
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		return n, err == nil
	}
	return 0, false
}
