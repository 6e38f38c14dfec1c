package rewrite

import (
	"context"
	"strings"

	"github.com/dmoreira/transferwire/internal/models"
)

// Rewriter transforms a raw item's text into the short, clear body that
// gets published. Implementations must preserve factual content and
// respect the body length budget.
type Rewriter interface {
	Rewrite(ctx context.Context, item models.ContentItem, source models.Source) (string, error)
}

// Error means the rewrite call failed after its retry budget. The
// pipeline skips the item and logs; it is never fatal to the cycle.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return "rewrite: " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Passthrough returns the original text bounded to the body budget. Used
// when no rewrite service is configured, so the pipeline still runs.
type Passthrough struct {
	MaxBody int
}

func (p *Passthrough) Rewrite(ctx context.Context, item models.ContentItem, source models.Source) (string, error) {
	text := strings.TrimSpace(item.Text)
	if p.MaxBody > 0 {
		if r := []rune(text); len(r) > p.MaxBody {
			text = string(r[:p.MaxBody-3]) + "..."
		}
	}
	return text, nil
}

// MockRewriter is a configurable implementation for tests.
type MockRewriter struct {
	Result string
	Err    error
	Calls  int
}

func (m *MockRewriter) Rewrite(ctx context.Context, item models.ContentItem, source models.Source) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Result != "" {
		return m.Result, nil
	}
	return item.Text, nil
}
