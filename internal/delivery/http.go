package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIConfig holds the settings for the HTTP publish pathway.
type APIConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// APIPublisher posts through an HTTP publish endpoint with a bearer
// token. It classifies failures; the caller owns the retry loop.
type APIPublisher struct {
	cfg    APIConfig
	client *http.Client
}

func NewAPI(cfg APIConfig) *APIPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &APIPublisher{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type publishRequest struct {
	Text string `json:"text"`
}

type publishResponse struct {
	ID string `json:"id"`
}

func (p *APIPublisher) Publish(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(publishRequest{Text: text})
	if err != nil {
		return "", &Error{Kind: Permanent, Cause: err}
	}

	req, err := http.NewRequestWithContext(callCtx, "POST", p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: Permanent, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Timeouts and network errors are worth another attempt.
		return "", &Error{Kind: Transient, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", &Error{Kind: Transient, Cause: fmt.Errorf("publish endpoint returned %d", resp.StatusCode)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &Error{Kind: Permanent, Cause: fmt.Errorf("publish endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var parsed publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &Error{Kind: Transient, Cause: fmt.Errorf("decode publish response: %w", err)}
	}
	if parsed.ID == "" {
		return "", &Error{Kind: Transient, Cause: fmt.Errorf("publish response had no id")}
	}

	return parsed.ID, nil
}
