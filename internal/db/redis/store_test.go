package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/citymatch/internal/db"
)

const userKey = "citymatch:dislikes:u1"

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

// isEvalsha matches a Lua script call, optionally checking key and args.
func isEvalsha(want ...string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		if len(cmd) < 3 || cmd[0] != "EVALSHA" {
			return false
		}
		// EVALSHA sha numkeys key args...
		rest := cmd[3:]
		if len(want) > len(rest) {
			return false
		}
		for i, w := range want {
			if rest[i] != w {
				return false
			}
		}
		return true
	})
}

// --- client.go tests ---

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_RecoversAfterFailures(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
			Return(mock.ErrorResult(errors.New("loading dataset"))).Times(2),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
			Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_ReportsLastPingError(t *testing.T) {
	s, c := newMockStore(t)
	refused := errors.New("connection refused")
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(refused)).AnyTimes()

	err := s.WaitForReady(context.Background(), 150*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.Is(err, refused) && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected ping cause or deadline, got %v", err)
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addresses")
	}
}

// --- hash.go tests ---

func TestDislikeHashCommands(t *testing.T) {
	s, c := newMockStore(t)
	ctx := context.Background()

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 4 && cmd[0] == "HSET" && cmd[1] == userKey && cmd[2] == "museum" && cmd[3] == "3"
		})).
		Return(mock.Result(mock.RedisInt64(1)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", userKey)).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"museum": mock.RedisString("3"),
		})))
	c.EXPECT().
		Do(gomock.Any(), isEvalsha(userKey, "museum", "4", "5")).
		Return(mock.Result(mock.RedisInt64(5)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HDEL", userKey, "museum", "zoo")).
		Return(mock.Result(mock.RedisInt64(1)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", userKey)).
		Return(mock.Result(mock.RedisInt64(1)))

	if err := s.HSet(ctx, userKey, map[string]string{"museum": "3"}); err != nil {
		t.Fatalf("hset: %v", err)
	}
	m, err := s.HGetAll(ctx, userKey)
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if m["museum"] != "3" {
		t.Errorf("expected museum=3, got %v", m)
	}
	n, err := s.HIncrByCapped(ctx, userKey, "museum", 4, 5)
	if err != nil {
		t.Fatalf("capped incr: %v", err)
	}
	if n != 5 {
		t.Errorf("expected clamped value 5, got %d", n)
	}
	if err := s.HDel(ctx, userKey, "museum", "zoo"); err != nil {
		t.Fatalf("hdel: %v", err)
	}
	if err := s.Del(ctx, userKey); err != nil {
		t.Fatalf("del: %v", err)
	}
}

func TestHDel_NoFieldsSkipsRoundTrip(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HDel(context.Background(), userKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- kv.go tests ---

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		reply   rueidis.RedisResult
		want    string
		wantErr error
	}{
		{"hit", mock.Result(mock.RedisBlobString("\x00\x01vec")), "\x00\x01vec", nil},
		{"miss", mock.Result(mock.RedisNil()), "", db.ErrKeyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match("GET", "emb:k")).Return(tt.reply)

			got, err := s.Get(context.Background(), "emb:k")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSetWithTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want []string
	}{
		{"expiring", time.Minute, []string{"SET", "emb:k", "v", "EX", "60"}},
		{"persistent", 0, []string{"SET", "emb:k", "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match(tt.want...)).Return(mock.Result(mock.RedisString("OK")))

			if err := s.SetWithTTL(context.Background(), "emb:k", []byte("v"), tt.ttl); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSet_NoExpiry(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "emb:k", "v")).Return(mock.Result(mock.RedisString("OK")))

	if err := s.Set(context.Background(), "emb:k", []byte("v")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- errors ---

func TestErrorsCarryOperation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		op      string
		matcher gomock.Matcher
		call    func(*Store) error
	}{
		{db.OpPing, mock.Match("PING"), func(s *Store) error { return s.Ping(ctx) }},
		{db.OpHSet, mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" }),
			func(s *Store) error { return s.HSet(ctx, userKey, map[string]string{"f": "1"}) }},
		{db.OpHGetAll, mock.Match("HGETALL", userKey),
			func(s *Store) error { _, err := s.HGetAll(ctx, userKey); return err }},
		{db.OpHIncrBy, isEvalsha(userKey),
			func(s *Store) error { _, err := s.HIncrByCapped(ctx, userKey, "f", 1, 5); return err }},
		{db.OpHDel, mock.Match("HDEL", userKey, "f"), func(s *Store) error { return s.HDel(ctx, userKey, "f") }},
		{db.OpDel, mock.Match("DEL", userKey), func(s *Store) error { return s.Del(ctx, userKey) }},
		{db.OpGet, mock.Match("GET", "emb:k"),
			func(s *Store) error { _, err := s.Get(ctx, "emb:k"); return err }},
		{db.OpSet, mock.Match("SET", "emb:k", "v"), func(s *Store) error { return s.Set(ctx, "emb:k", []byte("v")) }},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), tt.matcher).Return(mock.ErrorResult(context.DeadlineExceeded))

			err := tt.call(s)
			var dbErr *db.Error
			if !errors.As(err, &dbErr) {
				t.Fatalf("expected db.Error, got %v", err)
			}
			if dbErr.Op != tt.op {
				t.Errorf("expected op %s, got %s", tt.op, dbErr.Op)
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected wrapped cause, got %v", err)
			}
			if errors.Is(err, db.ErrKeyNotFound) {
				t.Error("transport error must not look like a miss")
			}
		})
	}
}
