package sources

import (
	"context"
	"time"

	"github.com/dmoreira/transferwire/internal/models"
)

// Monitor pulls recent items for one configured source. Implementations
// return items most-recent-first and make no deduplication promise; the
// pipeline's dedup guard owns that.
type Monitor interface {
	Name() string
	Source() models.Source
	FetchRecent(ctx context.Context) ([]models.ContentItem, error)
}

// FetchResult is one monitor's contribution to a cycle.
type FetchResult struct {
	Items  []models.ContentItem
	Source models.Source
	Err    error
}

// FetcherConfig bounds every network fetch a monitor performs.
type FetcherConfig struct {
	Timeout   time.Duration
	MaxItems  int
	UserAgent string
}

// DefaultConfig returns the fetch bounds used when config supplies none.
func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   30 * time.Second,
		MaxItems:  10,
		UserAgent: "transferwire/1.0",
	}
}
