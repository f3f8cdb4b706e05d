package gate

import (
	"context"
	"testing"
	"time"
)

type countingResolver struct {
	calls    int
	profiles map[uint]Profile
}

func (c *countingResolver) Resolve(_ context.Context, user uint) (Profile, error) {
	c.calls++
	return c.profiles[user], nil
}

func TestCachedResolver_CachesUntilExpiry(t *testing.T) {
	inner := &countingResolver{profiles: map[uint]Profile{1: NewStaticProfile("user")}}
	cached := NewCachedResolver[uint](inner, time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if _, err := cached.Resolve(context.Background(), 1); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	clock = clock.Add(2 * time.Minute)
	inner.profiles[1] = NewStaticProfile("admin")
	p, _ := cached.Resolve(context.Background(), 1)
	if p.Name() != "admin" || inner.calls != 2 {
		t.Fatalf("expected refresh after ttl, got %q after %d calls", p.Name(), inner.calls)
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := &countingResolver{profiles: map[uint]Profile{1: NewStaticProfile("user"), 2: NewStaticProfile("user")}}
	cached := NewCachedResolver[uint](inner, time.Hour)
	ctx := context.Background()

	_, _ = cached.Resolve(ctx, 1)
	_, _ = cached.Resolve(ctx, 2)
	inner.profiles[1] = nil
	inner.profiles[2] = NewStaticProfile("admin")
	cached.Invalidate(1)
	if p, _ := cached.Resolve(ctx, 1); p != nil {
		t.Fatalf("expected nil profile after invalidation, got %v", p)
	}
	if p, _ := cached.Resolve(ctx, 2); p.Name() != "user" {
		t.Fatalf("other users stay cached, got %q", p.Name())
	}
}
