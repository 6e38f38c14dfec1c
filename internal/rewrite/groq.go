package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/dmoreira/transferwire/internal/models"
)

// GroqConfig holds the settings for the Groq chat-completions client.
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxBody is the character budget for the rewritten body, leaving
	// room for attribution in the final post.
	MaxBody int
}

// GroqRewriter calls a Groq-hosted model through the OpenAI-style
// chat-completions endpoint. Each call carries its own timeout; the
// executor allows at most one retry with backoff before surfacing an
// Error.
type GroqRewriter struct {
	cfg      GroqConfig
	client   *http.Client
	executor failsafe.Executor[string]
}

func NewGroq(cfg GroqConfig) *GroqRewriter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3-8b-8192"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 200
	}

	retry := retrypolicy.NewBuilder[string]().
		WithMaxRetries(1).
		WithBackoff(time.Second, 4*time.Second).
		WithJitterFactor(0.1).
		Build()

	return &GroqRewriter{
		cfg:      cfg,
		client:   &http.Client{},
		executor: failsafe.With(retry),
	}
}

func (g *GroqRewriter) Rewrite(ctx context.Context, item models.ContentItem, source models.Source) (string, error) {
	prompt := g.buildPrompt(item, source)

	result, err := g.executor.WithContext(ctx).Get(func() (string, error) {
		return g.call(ctx, prompt)
	})
	if err != nil {
		return "", &Error{Cause: err}
	}

	rewritten := strings.TrimSpace(result)
	// Models sometimes quote their answer.
	if len(rewritten) >= 2 && strings.HasPrefix(rewritten, `"`) && strings.HasSuffix(rewritten, `"`) {
		rewritten = rewritten[1 : len(rewritten)-1]
	}
	if r := []rune(rewritten); len(r) > g.cfg.MaxBody {
		rewritten = string(r[:g.cfg.MaxBody-3]) + "..."
	}
	if rewritten == "" {
		return "", &Error{Cause: fmt.Errorf("empty completion")}
	}

	return rewritten, nil
}

func (g *GroqRewriter) buildPrompt(item models.ContentItem, source models.Source) string {
	var b strings.Builder
	b.WriteString("Rewrite this transfer-news post to be clearer and more concise. ")
	b.WriteString("Keep every fact, keep \"HERE WE GO!\" if present, fix grammar, ")
	fmt.Fprintf(&b, "stay under %d characters, drop hashtags and mentions.\n\n", g.cfg.MaxBody)
	fmt.Fprintf(&b, "Post: %q\n", item.Text)
	fmt.Fprintf(&b, "Reporter: %s (tier %d)\n", source.Handle, source.Tier)
	b.WriteString("\nReply with only the rewritten post.")
	return b.String()
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *GroqRewriter) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model:     g.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 150,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(callCtx, "POST", g.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("rewrite service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion had no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
