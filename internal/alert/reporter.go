package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmoreira/transferwire/internal/logging"
	"github.com/dmoreira/transferwire/internal/models"
)

// Reporter delivers structured alert events to the external channel.
// Report must never block the pipeline.
type Reporter interface {
	Report(event models.Event)
}

// Config holds the webhook reporter settings.
type Config struct {
	WebhookURL string
	// SigningSecret, when set, signs each request with a short-lived
	// HS256 service token.
	SigningSecret string
	Timeout       time.Duration
	QueueSize     int
}

// WebhookReporter posts events to a webhook from a single background
// goroutine fed by a bounded queue. A full queue drops the event with a
// local log line; a failed send is logged and never retried or escalated.
type WebhookReporter struct {
	cfg    Config
	logger *logging.Logger
	client *http.Client
	queue  chan models.Event
	done   chan struct{}
	once   sync.Once
}

func NewWebhook(cfg Config, logger *logging.Logger) *WebhookReporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	r := &WebhookReporter{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{},
		queue:  make(chan models.Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Report enqueues the event without blocking. Events are dropped when the
// queue is full so an unavailable alert channel cannot stall delivery.
func (r *WebhookReporter) Report(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("Alert queue full, dropping event", logging.WithField("type", event.Type))
	}
}

// Close stops the background sender after draining queued events.
func (r *WebhookReporter) Close() {
	r.once.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *WebhookReporter) run() {
	defer close(r.done)
	for event := range r.queue {
		r.send(event)
	}
}

func (r *WebhookReporter) send(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to marshal alert event", logging.WithField("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", r.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		r.logger.Error("Failed to build alert request", logging.WithField("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	if r.cfg.SigningSecret != "" {
		token, err := r.serviceToken()
		if err != nil {
			r.logger.Error("Failed to sign alert request", logging.WithField("error", err.Error()))
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Alert webhook send failed", logging.WithField("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		r.logger.Warn("Alert webhook rejected event", logging.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"type":   event.Type,
		}))
	}
}

func (r *WebhookReporter) serviceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "transferwire",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.cfg.SigningSecret))
}

// Event aliases the shared event model for caller convenience.
type Event = models.Event

// NopReporter drops every event. Used when no webhook is configured.
type NopReporter struct{}

func (NopReporter) Report(event Event) {}

// CaptureReporter records events for tests.
type CaptureReporter struct {
	mu     sync.Mutex
	events []Event
}

func (c *CaptureReporter) Report(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *CaptureReporter) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
