package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dmoreira/transferwire/internal/models"
)

// RSSMonitor reads a journalist's posts through an RSS mirror of their
// timeline.
type RSSMonitor struct {
	source models.Source
	parser *gofeed.Parser
	config FetcherConfig
}

func NewRSSMonitor(source models.Source, config FetcherConfig) *RSSMonitor {
	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent
	return &RSSMonitor{
		source: source,
		parser: parser,
		config: config,
	}
}

func (m *RSSMonitor) Name() string {
	return m.source.Handle
}

func (m *RSSMonitor) Source() models.Source {
	return m.source
}

func (m *RSSMonitor) FetchRecent(ctx context.Context) ([]models.ContentItem, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	feed, err := m.parser.ParseURLWithContext(m.source.FeedURL, ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", m.source.Handle, err)
	}

	now := time.Now()
	items := make([]models.ContentItem, 0, len(feed.Items))
	for i, entry := range feed.Items {
		if i >= m.config.MaxItems {
			break
		}

		postedAt := now
		if entry.PublishedParsed != nil {
			postedAt = *entry.PublishedParsed
		}

		text := strings.TrimSpace(entry.Title)
		if entry.Description != "" && len(entry.Description) > len(text) {
			text = strings.TrimSpace(entry.Description)
		}

		id := entry.GUID
		if id == "" {
			id = GenerateID(m.source.ID, entry.Link)
		}

		items = append(items, models.ContentItem{
			ID:        id,
			SourceID:  m.source.ID,
			Text:      text,
			PostedAt:  postedAt,
			FetchedAt: now,
			IsRepost:  strings.HasPrefix(text, "RT @"),
			IsReply:   strings.HasPrefix(text, "@"),
		})
	}

	return items, nil
}

// GenerateID derives a stable item id when the feed gives none.
func GenerateID(sourceID, link string) string {
	hash := sha256.Sum256([]byte(sourceID + link))
	return fmt.Sprintf("%x", hash[:8])
}
