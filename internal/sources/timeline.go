package sources

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dmoreira/transferwire/internal/cache"
	"github.com/dmoreira/transferwire/internal/models"
)

// TimelineMonitor scrapes an HTML timeline mirror for sources without a
// feed. Selectors describe where each item's parts live in the page.
type TimelineMonitor struct {
	source    models.Source
	selectors TimelineSelectors
	config    FetcherConfig
	client    *http.Client
	cache     cache.Cache
}

// TimelineSelectors are the CSS selectors for one timeline layout.
type TimelineSelectors struct {
	Container string
	Text      string
	Link      string
	Date      string
	Likes     string
	Reposts   string
	Replies   string
	Repost    string // present on the container when the item is a repost
	Reply     string
}

// DefaultTimelineSelectors matches the nitter-style mirrors the default
// registry points at.
func DefaultTimelineSelectors() TimelineSelectors {
	return TimelineSelectors{
		Container: ".timeline-item",
		Text:      ".tweet-content",
		Link:      ".tweet-link",
		Date:      ".tweet-date a",
		Likes:     ".icon-heart + .tweet-stat-count",
		Reposts:   ".icon-retweet + .tweet-stat-count",
		Replies:   ".icon-comment + .tweet-stat-count",
		Repost:    ".retweet-header",
		Reply:     ".replying-to",
	}
}

func NewTimelineMonitor(source models.Source, selectors TimelineSelectors, config FetcherConfig, c cache.Cache) *TimelineMonitor {
	return &TimelineMonitor{
		source:    source,
		selectors: selectors,
		config:    config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		cache: c,
	}
}

func (m *TimelineMonitor) Name() string {
	return m.source.Handle
}

func (m *TimelineMonitor) Source() models.Source {
	return m.source
}

func (m *TimelineMonitor) FetchRecent(ctx context.Context) ([]models.ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.source.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", m.config.UserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timeline for %s: %w", m.source.Handle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timeline %s returned status %d", m.source.Handle, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline body: %w", err)
	}

	// Skip re-parsing when the page has not changed since the last cycle.
	pageHash := fmt.Sprintf("%x", sha256.Sum256(body))
	hashKey := "timeline_hash:" + m.source.ID
	itemsKey := "timeline_items:" + m.source.ID
	if m.cache != nil {
		if prev, ok := m.cache.Get(hashKey); ok && prev == pageHash {
			if cached, ok := m.cache.Get(itemsKey); ok {
				if items, ok := cached.([]models.ContentItem); ok {
					return items, nil
				}
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse timeline HTML: %w", err)
	}

	now := time.Now()
	items := make([]models.ContentItem, 0, m.config.MaxItems)

	doc.Find(m.selectors.Container).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(items) >= m.config.MaxItems {
			return false
		}

		text := strings.TrimSpace(s.Find(m.selectors.Text).Text())
		if text == "" {
			return true
		}

		link, _ := s.Find(m.selectors.Link).Attr("href")
		postedAt := now
		if raw, ok := s.Find(m.selectors.Date).Attr("title"); ok {
			if t, err := time.Parse("Jan 2, 2006 · 3:04 PM MST", raw); err == nil {
				postedAt = t
			}
		}

		items = append(items, models.ContentItem{
			ID:        GenerateID(m.source.ID, link),
			SourceID:  m.source.ID,
			Text:      text,
			PostedAt:  postedAt,
			FetchedAt: now,
			Engagement: models.Engagement{
				Likes:   parseCount(s.Find(m.selectors.Likes).Text()),
				Reposts: parseCount(s.Find(m.selectors.Reposts).Text()),
				Replies: parseCount(s.Find(m.selectors.Replies).Text()),
			},
			IsRepost: s.Find(m.selectors.Repost).Length() > 0,
			IsReply:  s.Find(m.selectors.Reply).Length() > 0,
		})
		return true
	})

	if m.cache != nil {
		m.cache.Set(hashKey, pageHash)
		m.cache.Set(itemsKey, items)
	}

	return items, nil
}

// parseCount reads counters like "1,234" or "12.5K".
func parseCount(raw string) int {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0
	}
	multiplier := 1.0
	switch {
	case strings.HasSuffix(raw, "K"):
		multiplier = 1000
		raw = strings.TrimSuffix(raw, "K")
	case strings.HasSuffix(raw, "M"):
		multiplier = 1000000
		raw = strings.TrimSuffix(raw, "M")
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(n * multiplier)
}
