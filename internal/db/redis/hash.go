package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/citymatch/internal/db"
)

// cappedIncr adds ARGV[2] to hash field ARGV[1] and clamps the result to ARGV[3].
var cappedIncr = rueidis.NewLuaScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
local limit = tonumber(ARGV[3])
if n > limit then
  redis.call('HSET', KEYS[1], ARGV[1], limit)
  return limit
end
return n
`)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HIncrByCapped adds delta to a hash field and returns the new value, never
// exceeding limit. Increment and clamp run as one script.
func (s *Store) HIncrByCapped(ctx context.Context, key, field string, delta, limit int64) (int64, error) {
	args := []string{field, strconv.FormatInt(delta, 10), strconv.FormatInt(limit, 10)}
	n, err := cappedIncr.Exec(ctx, s.client, []string{key}, args).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpHIncrBy, Err: err}
	}
	return n, nil
}

// HDel removes specific fields from a hash.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd := s.b().Hdel().Key(key).Field(fields...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHDel, Err: err}
	}
	return nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
