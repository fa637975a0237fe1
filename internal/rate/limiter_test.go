package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FiveThenBlocked(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(5, 300*time.Second)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "acme:ana@acme.io")
		if err != nil || !res.Allowed {
			t.Fatalf("send %d should be allowed: %+v %v", i+1, res, err)
		}
	}
	res, _ := l.Allow(ctx, "acme:ana@acme.io")
	if res.Allowed {
		t.Fatal("6th send must be blocked")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("expected retry-after, got %v", res.RetryAfter)
	}

	// keys independientes
	if res, _ := l.Allow(ctx, "beta:ana@acme.io"); !res.Allowed {
		t.Fatal("other key must not be affected")
	}
}

func TestMemoryLimiter_Refills(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(1, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("first allowed")
	}
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatal("second blocked")
	}
	now = now.Add(61 * time.Second)
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("allowed after window")
	}
}
