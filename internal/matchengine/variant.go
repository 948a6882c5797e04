package matchengine

// VariantForBucket walks the variant rollout table in list order,
// accumulating cutoffs, and returns the first variant whose cumulative upper
// bound exceeds the bucket value.
//
// When the configured percentages sum below 100 and the bucket lands beyond
// the last cutoff, the last variant is returned rather than nothing: every
// identifier inside the flag's own rollout gate gets some variant. Returns
// "" only when no variants are configured at all.
func VariantForBucket(cfg *MultivariateConfig, bucket float64) string {
	if cfg == nil || len(cfg.Variants) == 0 {
		return ""
	}

	cumulative := 0.0
	for _, variant := range cfg.Variants {
		cumulative += variant.RolloutPercentage / 100
		if bucket < cumulative {
			return variant.Key
		}
	}

	return cfg.Variants[len(cfg.Variants)-1].Key
}

// SelectVariant picks the multivariate variant for an identifier using the
// flag's variant salt, an independent draw from the rollout gate.
func SelectVariant(flag *FeatureFlag, identifier string) string {
	return VariantForBucket(flag.Multivariate, Bucket(VariantSalt(flag.Key), identifier))
}
