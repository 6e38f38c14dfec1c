package sources

import (
	"github.com/dmoreira/transferwire/internal/cache"
	"github.com/dmoreira/transferwire/internal/config"
	"github.com/dmoreira/transferwire/internal/models"
)

// FromRegistry builds one monitor per enabled registry entry, preserving
// registry order (tier-first). Unknown kinds were already rejected by
// config validation.
func FromRegistry(entries []config.SourceEntry, fetcherConfig FetcherConfig, c cache.Cache) []Monitor {
	monitors := make([]Monitor, 0, len(entries))

	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}

		source := entry.Model()
		switch source.Kind {
		case "timeline":
			monitors = append(monitors, NewTimelineMonitor(source, DefaultTimelineSelectors(), fetcherConfig, c))
		default:
			monitors = append(monitors, NewRSSMonitor(source, fetcherConfig))
		}
	}

	return monitors
}

// Registry order is the delivery priority order; expose it for tests.
func Sources(monitors []Monitor) []models.Source {
	out := make([]models.Source, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, m.Source())
	}
	return out
}
