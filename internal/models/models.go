package models

import "time"

// Source is a configured content origin: one journalist or outlet the bot
// monitors. The registry is immutable within a cycle and replaced wholesale
// on reload.
type Source struct {
	ID          string   `json:"id"`
	Handle      string   `json:"handle"`
	DisplayName string   `json:"displayName"`
	FeedURL     string   `json:"feedUrl"`
	Kind        string   `json:"kind"` // "rss" or "timeline"
	Tier        int      `json:"tier"` // 1 = highest priority
	Reliability float64  `json:"reliability"`
	MinScore    int      `json:"minEngagement,omitempty"`
	AllowTerms  []string `json:"allowTerms,omitempty"`
	DenyTerms   []string `json:"denyTerms,omitempty"`
	Enabled     bool     `json:"enabled"`
}

// ContentItem is one raw item pulled from a source. It exists only until a
// processing decision is made; after that only its ID survives, inside the
// dedup guard.
type ContentItem struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"sourceId"`
	Text       string     `json:"text"`
	PostedAt   time.Time  `json:"postedAt"`
	FetchedAt  time.Time  `json:"fetchedAt"`
	Engagement Engagement `json:"engagement"`
	IsRepost   bool       `json:"isRepost"`
	IsReply    bool       `json:"isReply"`
}

// Engagement holds the public interaction counters of a content item.
type Engagement struct {
	Likes   int `json:"likes"`
	Reposts int `json:"reposts"`
	Replies int `json:"replies"`
}

// Score is the aggregate engagement used against thresholds.
func (e Engagement) Score() int {
	return e.Likes + e.Reposts + e.Replies
}

// ProcessedItem is a content item that survived filtering, carrying the
// rewritten and fully formatted text. Transient, scoped to one cycle.
type ProcessedItem struct {
	Item      ContentItem
	Source    Source
	Rewritten string
	Formatted string
	Band      string
}

// PostRecord is created only after a confirmed successful delivery.
type PostRecord struct {
	ContentID  string    `json:"contentId"`
	DeliveryID string    `json:"deliveryId"`
	SourceID   string    `json:"sourceId"`
	PostedAt   time.Time `json:"postedAt"`
}

// Event is a structured alert sent through the error reporter.
type Event struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Event types escalated through the alert channel.
const (
	EventDeliveryPermanent = "delivery_permanent"
	EventFetchOutage       = "fetch_outage"
	EventCycleError        = "cycle_error"
)
