package dislike

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
)

// hashStore is the consumer interface over the shared database.
type hashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrByCapped(ctx context.Context, key, field string, delta, limit int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
}

// HashRepo keeps each user's weights in one hash: field = category, value = weight.
type HashRepo struct {
	store hashStore
}

// NewHashRepo creates a Redis/Valkey backed repository.
func NewHashRepo(s hashStore) *HashRepo {
	return &HashRepo{store: s}
}

// Get returns the user's weights, empty when none are stored.
func (r *HashRepo) Get(ctx context.Context, userID string) (ranking.DislikeWeights, error) {
	fields, err := r.store.HGetAll(ctx, userKey(userID))
	if err != nil {
		return nil, unavailable("get dislikes", err)
	}
	out := make(ranking.DislikeWeights, len(fields))
	for cat, raw := range fields {
		w, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("dislike %q for user %q: parse weight %q: %w", cat, userID, raw, err)
		}
		out[cat] = w
	}
	return out, nil
}

// Set stores an exact weight.
func (r *HashRepo) Set(ctx context.Context, userID, category string, weight int) error {
	if err := validateKey(userID, category); err != nil {
		return err
	}
	if err := ranking.ValidateDislikeWeight(weight); err != nil {
		return err //nolint:wrapcheck // sentinel carries the value
	}
	if err := r.store.HSet(ctx, userKey(userID), map[string]string{category: strconv.Itoa(weight)}); err != nil {
		return unavailable("set dislike", err)
	}
	return nil
}

// Add increments a weight by points, capped at the maximum, and returns the new weight.
func (r *HashRepo) Add(ctx context.Context, userID, category string, points int) (int, error) {
	if err := validateAdd(userID, category, points); err != nil {
		return 0, err
	}
	n, err := r.store.HIncrByCapped(ctx, userKey(userID), category, int64(points), ranking.MaxDislikeWeight)
	if err != nil {
		return 0, unavailable("add dislike", err)
	}
	return int(n), nil
}

// Remove deletes one category. Removing an absent category is not an error.
func (r *HashRepo) Remove(ctx context.Context, userID, category string) error {
	if err := validateKey(userID, category); err != nil {
		return err
	}
	if err := r.store.HDel(ctx, userKey(userID), category); err != nil {
		return unavailable("remove dislike", err)
	}
	return nil
}

// Clear deletes every weight of the user.
func (r *HashRepo) Clear(ctx context.Context, userID string) error {
	if err := r.store.Del(ctx, userKey(userID)); err != nil {
		return unavailable("clear dislikes", err)
	}
	return nil
}
