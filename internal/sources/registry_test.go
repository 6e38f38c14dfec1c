package sources

import (
	"testing"
	"time"

	"github.com/dmoreira/transferwire/internal/config"
)

func TestFromRegistry_BuildsMonitorsInOrder(t *testing.T) {
	entries := []config.SourceEntry{
		{Handle: "FabrizioRomano", FeedURL: "https://example.org/fab.rss", Kind: "rss", Tier: 1, Reliability: 95, Enabled: true},
		{Handle: "David_Ornstein", FeedURL: "https://example.org/orn", Kind: "timeline", Tier: 1, Reliability: 93, Enabled: true},
		{Handle: "Disabled", FeedURL: "https://example.org/off.rss", Kind: "rss", Tier: 2, Reliability: 50, Enabled: false},
		{Handle: "SkySportsNews", FeedURL: "https://example.org/sky.rss", Kind: "rss", Tier: 2, Reliability: 80, Enabled: true},
	}

	monitors := FromRegistry(entries, FetcherConfig{Timeout: time.Second, MaxItems: 5}, nil)

	if len(monitors) != 3 {
		t.Fatalf("expected 3 monitors (disabled skipped), got %d", len(monitors))
	}

	if _, ok := monitors[0].(*RSSMonitor); !ok {
		t.Errorf("expected RSS monitor first, got %T", monitors[0])
	}
	if _, ok := monitors[1].(*TimelineMonitor); !ok {
		t.Errorf("expected timeline monitor second, got %T", monitors[1])
	}

	order := Sources(monitors)
	want := []string{"FabrizioRomano", "David_Ornstein", "SkySportsNews"}
	for i, handle := range want {
		if order[i].Handle != handle {
			t.Errorf("position %d: expected %s, got %s", i, handle, order[i].Handle)
		}
	}
}
