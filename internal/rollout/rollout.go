// Package rollout assigns users to experiment variants deterministically.
// It hashes userID, experiment id and a salt into a bucket (0-99) and walks
// the cumulative variant weights. The same inputs always pick the same variant.
package rollout

import (
	"errors"
	"fmt"

	"github.com/TimurManjosov/abconsole/internal/model"
	"github.com/cespare/xxhash/v2"
)

// ErrNoVariants is returned when an experiment has nothing to assign.
var ErrNoVariants = errors.New("experiment has no variants")

// ErrInvalidVariantWeights is returned when explicit weights don't sum to 100.
var ErrInvalidVariantWeights = errors.New("variant weights must sum to 100")

// BucketUser returns a deterministic bucket (0-99) for the given user and experiment.
func BucketUser(userID, experimentID, salt string) int {
	if userID == "" {
		return -1 // no user context
	}
	key := userID + ":" + experimentID + ":" + salt
	return int(xxhash.Sum64String(key) % 100)
}

// ValidateVariants checks that every variant has a key and that keys are unique.
// Weights are either all omitted (equal split) or all present and summing to 100.
func ValidateVariants(variants []model.Variant) error {
	if len(variants) == 0 {
		return ErrNoVariants
	}

	seen := make(map[string]bool, len(variants))
	weighted := 0
	total := 0
	for _, v := range variants {
		if v.Key == "" {
			return errors.New("variant key cannot be empty")
		}
		if seen[v.Key] {
			return fmt.Errorf("duplicate variant key: %s", v.Key)
		}
		seen[v.Key] = true

		if v.Weight != nil {
			if *v.Weight < 0 || *v.Weight > 100 {
				return errors.New("variant weight must be between 0 and 100")
			}
			weighted++
			total += *v.Weight
		}
	}

	if weighted == 0 {
		return nil
	}
	if weighted != len(variants) || total != 100 {
		return ErrInvalidVariantWeights
	}
	return nil
}

// PickVariant returns the key of the variant the user falls into.
//
// Example: weights [A:50, B:30, C:20]
//   - bucket 0-49  → A
//   - bucket 50-79 → B
//   - bucket 80-99 → C
func PickVariant(userID, experimentID string, variants []model.Variant, salt string) (string, error) {
	if err := ValidateVariants(variants); err != nil {
		return "", err
	}
	bucket := BucketUser(userID, experimentID, salt)
	if bucket < 0 {
		return "", errors.New("user id is required")
	}

	if variants[0].Weight == nil {
		return variants[bucket*len(variants)/100].Key, nil
	}

	cumulative := 0
	for _, v := range variants {
		cumulative += *v.Weight
		if bucket < cumulative {
			return v.Key, nil
		}
	}
	return variants[len(variants)-1].Key, nil
}
