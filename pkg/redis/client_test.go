package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DanielHemmis/BggCollections/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "bggc:thing:13", `{"id":13}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, "bggc:thing:13")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != `{"id":13}` {
		t.Fatalf("unexpected value %q", got)
	}
	if mock.ttls["bggc:thing:13"] != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls["bggc:thing:13"])
	}

	if err := client.Del(ctx, "bggc:thing:13"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "bggc:thing:13"); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestGetManySkipsMissingKeys(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.data["a"] = "1"
	mock.data["c"] = "3"
	client := &Client{store: mock}

	found, err := client.GetMany(ctx, "a", "b", "c")
	if err != nil {
		t.Fatalf("get many failed: %v", err)
	}
	if len(found) != 2 || found["a"] != "1" || found["c"] != "3" {
		t.Fatalf("unexpected result %v", found)
	}

	empty, err := client.GetMany(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for no keys, got %v %v", empty, err)
	}
}

func TestSetNXOnlySetsOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, client.LockKey("warmer"), "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, got %v %v", ok, err)
	}
	ok, err = client.SetNX(ctx, client.LockKey("warmer"), "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, got %v %v", ok, err)
	}
	if got := mock.data["bggc:lock:warmer"]; got != "owner-a" {
		t.Fatalf("lock owner overwritten: %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	ctx := context.Background()
	var client *Client
	if err := client.Ping(ctx); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if _, err := (&Client{}).GetMany(ctx, "a"); err == nil {
		t.Fatalf("expected error from empty client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.ThingKey(174430); got != "bggc:thing:174430" {
		t.Fatalf("unexpected thing key %s", got)
	}
	if got := client.buildKey(); got != "bggc" {
		t.Fatalf("unexpected bare key %s", got)
	}
	if got := client.buildKey("a", "", " b "); got != "bggc:a:b" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.ReadTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 4 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	values := make([]any, len(keys))
	for i, key := range keys {
		if v, ok := m.data[key]; ok {
			values[i] = v
		}
	}
	return redis.NewSliceResult(values, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
