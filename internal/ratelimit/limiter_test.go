package ratelimit

import (
	"testing"
	"time"
)

func TestAcquire_AllowsUpToDailyCap(t *testing.T) {
	limiter := New(50, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		decision := limiter.Acquire(now)
		if !decision.Allowed {
			t.Fatalf("acquire %d denied: %s", i+1, decision.Reason)
		}
		limiter.Commit(now)
		now = now.Add(time.Minute)
	}

	decision := limiter.Acquire(now)
	if decision.Allowed {
		t.Fatal("51st acquire should be denied")
	}
	if decision.Reason != DailyCapReached {
		t.Errorf("expected reason %s, got %s", DailyCapReached, decision.Reason)
	}
}

func TestAcquire_MinInterval(t *testing.T) {
	limiter := New(10, 5*time.Minute, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if d := limiter.Acquire(now); !d.Allowed {
		t.Fatalf("first acquire denied: %s", d.Reason)
	}
	limiter.Commit(now)

	decision := limiter.Acquire(now.Add(2 * time.Minute))
	if decision.Allowed {
		t.Fatal("acquire inside min interval should be denied")
	}
	if decision.Reason != TooSoon {
		t.Errorf("expected reason %s, got %s", TooSoon, decision.Reason)
	}
	if decision.Wait != 3*time.Minute {
		t.Errorf("expected wait 3m, got %s", decision.Wait)
	}

	if d := limiter.Acquire(now.Add(5 * time.Minute)); !d.Allowed {
		t.Errorf("acquire at exactly min interval denied: %s", d.Reason)
	}
}

func TestAcquire_FailedDeliveryConsumesNoSlot(t *testing.T) {
	limiter := New(1, 0, time.UTC)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Acquire without Commit models a failed delivery.
	if d := limiter.Acquire(now); !d.Allowed {
		t.Fatalf("acquire denied: %s", d.Reason)
	}

	if d := limiter.Acquire(now.Add(time.Minute)); !d.Allowed {
		t.Fatalf("slot consumed by failed delivery: %s", d.Reason)
	}
}

func TestAcquire_DayRolloverResetsCount(t *testing.T) {
	limiter := New(2, 0, time.UTC)
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	limiter.Commit(now)
	limiter.Commit(now.Add(10 * time.Minute))

	if d := limiter.Acquire(now.Add(20 * time.Minute)); d.Allowed {
		t.Fatal("cap should be reached before midnight")
	}

	nextDay := time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)
	if d := limiter.Acquire(nextDay); !d.Allowed {
		t.Fatalf("acquire after rollover denied: %s", d.Reason)
	}

	snap := limiter.Snapshot()
	if snap.PostsToday != 0 {
		t.Errorf("expected postsToday reset to 0, got %d", snap.PostsToday)
	}
	if snap.DayAnchor != "2026-03-11" {
		t.Errorf("expected day anchor 2026-03-11, got %s", snap.DayAnchor)
	}
}

func TestAcquire_RolloverUsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	limiter := New(1, 0, loc)

	// 03:00 UTC is still the previous day in New York.
	limiter.Commit(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))

	decision := limiter.Acquire(time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC))
	if decision.Allowed {
		t.Fatal("UTC midnight should not reset a New York day")
	}

	// 10:00 UTC on the 11th is past midnight in New York.
	if d := limiter.Acquire(time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)); !d.Allowed {
		t.Fatalf("acquire after local midnight denied: %s", d.Reason)
	}
}

func TestAcquire_RolloverResetsExactlyOnce(t *testing.T) {
	limiter := New(5, 0, time.UTC)
	limiter.Commit(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	nextDay := time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	limiter.Acquire(nextDay)
	limiter.Commit(nextDay)

	// A second acquire on the same new day must not reset the count again
	// and then lose the committed post.
	limiter.Acquire(nextDay.Add(time.Minute))

	snap := limiter.Snapshot()
	if snap.PostsToday != 1 {
		t.Errorf("expected 1 post today after rollover, got %d", snap.PostsToday)
	}
}

func TestAcquire_IntervalAppliesAcrossRollover(t *testing.T) {
	limiter := New(10, 30*time.Minute, time.UTC)
	limiter.Commit(time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC))

	// Ten minutes later the day rolled over but the interval has not
	// elapsed.
	decision := limiter.Acquire(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	if decision.Allowed {
		t.Fatal("min interval should still apply after rollover")
	}
	if decision.Reason != TooSoon {
		t.Errorf("expected reason %s, got %s", TooSoon, decision.Reason)
	}
}
