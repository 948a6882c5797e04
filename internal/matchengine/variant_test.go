package matchengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeWayConfig() *MultivariateConfig {
	return &MultivariateConfig{Variants: []Variant{
		{Key: "first", RolloutPercentage: 50},
		{Key: "second", RolloutPercentage: 25},
		{Key: "third", RolloutPercentage: 25},
	}}
}

func TestVariantForBucket_Cutoffs(t *testing.T) {
	t.Parallel()

	cfg := threeWayConfig()

	tests := []struct {
		bucket float64
		want   string
	}{
		{0.0, "first"},
		{0.499, "first"},
		{0.5, "second"},
		{0.749, "second"},
		{0.75, "third"},
		{0.999, "third"},
		// Bucket beyond the cumulative sum still lands on the last
		// variant: every in-rollout identifier gets some variant.
		{0.999999999, "third"},
	}

	for _, tt := range tests {
		got := VariantForBucket(cfg, tt.bucket)
		assert.Equal(t, tt.want, got, "bucket %v", tt.bucket)
	}
}

func TestVariantForBucket_UnderAllocatedTable(t *testing.T) {
	t.Parallel()

	// Percentages sum to 60; the gap falls back to the last variant.
	cfg := &MultivariateConfig{Variants: []Variant{
		{Key: "control", RolloutPercentage: 30},
		{Key: "test", RolloutPercentage: 30},
	}}

	assert.Equal(t, "control", VariantForBucket(cfg, 0.1))
	assert.Equal(t, "test", VariantForBucket(cfg, 0.45))
	assert.Equal(t, "test", VariantForBucket(cfg, 0.8))
	assert.Equal(t, "test", VariantForBucket(cfg, 0.9999))
}

func TestVariantForBucket_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", VariantForBucket(nil, 0.5))
	assert.Equal(t, "", VariantForBucket(&MultivariateConfig{}, 0.5))
}

func TestSelectVariant_CoverageAndDeterminism(t *testing.T) {
	t.Parallel()

	flag := &FeatureFlag{Key: "experiment-1", Multivariate: threeWayConfig()}
	seen := map[string]int{}

	for i := 0; i < 10000; i++ {
		id := randomID()
		got := SelectVariant(flag, id)

		// Never empty for any identifier.
		require.NotEmpty(t, got)
		seen[got]++

		// Sticky: repeated selection never changes.
		assert.Equal(t, got, SelectVariant(flag, id))
	}

	// All three arms should be populated roughly per their weights.
	assert.InDelta(t, 5000, seen["first"], 500)
	assert.InDelta(t, 2500, seen["second"], 400)
	assert.InDelta(t, 2500, seen["third"], 400)
}
