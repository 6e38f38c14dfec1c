package ratelimit

import (
	"sync"
	"time"
)

// DenialReason says why an acquire was denied.
type DenialReason string

const (
	DailyCapReached DenialReason = "daily_cap_reached"
	TooSoon         DenialReason = "too_soon"
)

// Decision is the outcome of one Acquire call. When denied with TooSoon,
// Wait holds the remaining delay before a post would be allowed.
type Decision struct {
	Allowed bool
	Reason  DenialReason
	Wait    time.Duration
}

// Snapshot is a read-only view of the limiter state, for logs and tests.
type Snapshot struct {
	PostsToday int
	LastPost   time.Time
	DayAnchor  string
}

// PostLimiter enforces the daily posting cap and the minimum interval
// between posts. Acquire is consulted immediately before a delivery;
// Commit is called only after a confirmed success, so a failed delivery
// attempt never consumes a slot.
type PostLimiter struct {
	mu sync.Mutex

	maxPerDay   int
	minInterval time.Duration
	loc         *time.Location

	postsToday int
	lastPost   time.Time
	dayAnchor  string // calendar date in loc, "2006-01-02"
}

func New(maxPerDay int, minInterval time.Duration, loc *time.Location) *PostLimiter {
	if loc == nil {
		loc = time.UTC
	}
	return &PostLimiter{
		maxPerDay:   maxPerDay,
		minInterval: minInterval,
		loc:         loc,
	}
}

// Acquire reports whether a post is allowed right now. The day-rollover
// check runs first on every call: when the calendar date in the configured
// timezone no longer matches the stored anchor, postsToday resets exactly
// once before the request is evaluated.
func (l *PostLimiter) Acquire(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked(now)

	if l.postsToday >= l.maxPerDay {
		return Decision{Reason: DailyCapReached}
	}

	if !l.lastPost.IsZero() {
		elapsed := now.Sub(l.lastPost)
		if elapsed < l.minInterval {
			return Decision{Reason: TooSoon, Wait: l.minInterval - elapsed}
		}
	}

	return Decision{Allowed: true}
}

// Commit records a confirmed successful delivery. Callers must have seen
// an allowed decision from Acquire within the same serial pass.
func (l *PostLimiter) Commit(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked(now)
	l.postsToday++
	l.lastPost = now
}

// Snapshot returns the current limiter state.
func (l *PostLimiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Snapshot{
		PostsToday: l.postsToday,
		LastPost:   l.lastPost,
		DayAnchor:  l.dayAnchor,
	}
}

func (l *PostLimiter) rolloverLocked(now time.Time) {
	day := now.In(l.loc).Format("2006-01-02")
	if day != l.dayAnchor {
		l.postsToday = 0
		l.dayAnchor = day
	}
}
