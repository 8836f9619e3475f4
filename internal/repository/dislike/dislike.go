// Package dislike persists per-user category dislike weights.
package dislike

import (
	"fmt"

	"github.com/kailas-cloud/citymatch/internal/domain"
)

// keyPrefix namespaces per-user hashes in the shared database.
var keyPrefix = domain.KeyPrefix + "dislikes:"

func userKey(userID string) string { return keyPrefix + userID }

func validateAdd(userID, category string, points int) error {
	if err := validateKey(userID, category); err != nil {
		return err
	}
	if points < 1 {
		return fmt.Errorf("%w: points must be >= 1, got %d", domain.ErrInvalidDislikeWeight, points)
	}
	return nil
}

func validateKey(userID, category string) error {
	if userID == "" || category == "" {
		return fmt.Errorf("%w: user and category are required", domain.ErrInvalidDislikeWeight)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
