package matchengine

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// bucketScale is the largest value representable in the first 15 hex digits
// of the digest (15 F's). Dividing by it normalizes into [0,1).
const bucketScale = float64(0xfffffffffffffff)

// Bucket maps (salt, identifier) to a deterministic value in [0,1).
//
// The input is the UTF-8 concatenation of salt and identifier, hashed with
// MD5; the first 15 hex digits of the digest are read as a base-16 integer
// and divided by 0xfffffffffffffff. The algorithm is part of the wire-level
// parity contract with the client SDK evaluators and must not change.
//
// Callers pass RolloutSalt or VariantSalt so the rollout gate and the
// variant pick are independent draws for the same identifier.
func Bucket(salt, identifier string) float64 {
	sum := md5.Sum([]byte(salt + identifier))
	digest := hex.EncodeToString(sum[:])

	// 15 hex digits always fit in an int64 (60 bits) and the digest is
	// always 32 hex characters, so ParseInt cannot fail here.
	val, _ := strconv.ParseInt(digest[:15], 16, 64)

	return float64(val) / bucketScale
}

// RolloutSalt is the salt used for rollout-percentage gating of flagKey.
func RolloutSalt(flagKey string) string {
	return flagKey + "."
}

// VariantSalt is the salt used for multivariate bucketing of flagKey.
func VariantSalt(flagKey string) string {
	return flagKey + ".variant."
}
