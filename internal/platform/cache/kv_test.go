package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKV(client, "anc:")
}

func TestRedisKV_SetGet(t *testing.T) {
	mr, kv := setupRedis(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "summary", "v1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get(ctx, "summary")
	if err != nil || got != "v1" {
		t.Fatalf("expected v1, got %q (%v)", got, err)
	}
	if !mr.Exists("anc:summary") {
		t.Error("expected key to be stored with prefix")
	}
}

func TestRedisKV_MissAndExpiry(t *testing.T) {
	mr, kv := setupRedis(t)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
	kv.Set(ctx, "short", "x", time.Second)
	mr.FastForward(2 * time.Second)
	if _, err := kv.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected expired key to miss, got %v", err)
	}
}

func TestRedisKV_Delete(t *testing.T) {
	_, kv := setupRedis(t)
	ctx := context.Background()
	kv.Set(ctx, "a", "1", 0)
	kv.Set(ctx, "b", "2", 0)

	if err := kv.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "a"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected a to be deleted, got %v", err)
	}
	if err := kv.Delete(ctx); err != nil {
		t.Errorf("empty delete should be a no-op, got %v", err)
	}
}

func TestRedisKV_Ping(t *testing.T) {
	_, kv := setupRedis(t)
	if err := kv.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	kv.Set(ctx, "k", "v", time.Minute)
	kv.Set(ctx, "forever", "v", 0)
	if got, err := kv.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected expiry at ttl, got %v", err)
	}
	if _, err := kv.Get(ctx, "forever"); err != nil {
		t.Errorf("expected no-ttl key to survive, got %v", err)
	}

	kv.Delete(ctx, "forever")
	if _, err := kv.Get(ctx, "forever"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected deleted key to miss, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	type payload struct {
		Total int `json:"total"`
	}

	if err := SetJSON(ctx, kv, "p", payload{Total: 7}, 0); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got payload
	if err := GetJSON(ctx, kv, "p", &got); err != nil || got.Total != 7 {
		t.Fatalf("expected total 7, got %+v (%v)", got, err)
	}

	kv.Set(ctx, "bad", "{", 0)
	if err := GetJSON(ctx, kv, "bad", &got); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("expected decode error, got %v", err)
	}
}
