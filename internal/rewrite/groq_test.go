package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmoreira/transferwire/internal/models"
)

func completionResponse(content string) chatResponse {
	var resp chatResponse
	resp.Choices = append(resp.Choices, struct {
		Message chatMessage `json:"message"`
	}{Message: chatMessage{Role: "assistant", Content: content}})
	return resp
}

func newGroqServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GroqRewriter) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rewriter := NewGroq(GroqConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	return server, rewriter
}

func TestGroqRewrite_Success(t *testing.T) {
	var gotPath, gotAuth string

	_, rewriter := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(completionResponse("Player X joins Club Y on a permanent deal."))
	})

	item := models.ContentItem{Text: "player x 2 club y done deal!!"}
	out, err := rewriter.Rewrite(context.Background(), item, models.Source{Handle: "FabrizioRomano", Tier: 1})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	if out != "Player X joins Club Y on a permanent deal." {
		t.Errorf("unexpected rewrite: %q", out)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("unexpected endpoint path %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestGroqRewrite_StripsWrappingQuotes(t *testing.T) {
	_, rewriter := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse(`"Player X joins Club Y."`))
	})

	out, err := rewriter.Rewrite(context.Background(), models.ContentItem{Text: "x"}, models.Source{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if out != "Player X joins Club Y." {
		t.Errorf("quotes not stripped: %q", out)
	}
}

func TestGroqRewrite_EnforcesBodyBudget(t *testing.T) {
	long := strings.Repeat("transfer ", 60)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse(long))
	}))
	defer server.Close()

	rewriter := NewGroq(GroqConfig{APIKey: "k", BaseURL: server.URL, MaxBody: 100})

	out, err := rewriter.Rewrite(context.Background(), models.ContentItem{Text: "x"}, models.Source{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if got := len([]rune(out)); got > 100 {
		t.Errorf("body length %d exceeds budget", got)
	}
	if !strings.HasSuffix(out, "...") {
		t.Errorf("expected truncation marker, got %q", out)
	}
}

func TestGroqRewrite_RetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	_, rewriter := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(completionResponse("Recovered rewrite."))
	})

	out, err := rewriter.Rewrite(context.Background(), models.ContentItem{Text: "x"}, models.Source{})
	if err != nil {
		t.Fatalf("Rewrite failed after retry: %v", err)
	}
	if out != "Recovered rewrite." {
		t.Errorf("unexpected rewrite: %q", out)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGroqRewrite_FailureAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32

	_, rewriter := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := rewriter.Rewrite(context.Background(), models.ContentItem{Text: "x"}, models.Source{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var rewriteErr *Error
	if !errors.As(err, &rewriteErr) {
		t.Errorf("expected *rewrite.Error, got %T", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts (one retry), got %d", calls.Load())
	}
}

func TestGroqRewrite_EmptyCompletionIsError(t *testing.T) {
	_, rewriter := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("   "))
	})

	_, err := rewriter.Rewrite(context.Background(), models.ContentItem{Text: "x"}, models.Source{})
	if err == nil {
		t.Fatal("expected error for empty completion")
	}
}

func TestPassthrough_BoundsBody(t *testing.T) {
	p := &Passthrough{MaxBody: 20}

	out, err := p.Rewrite(context.Background(), models.ContentItem{Text: "  short text  "}, models.Source{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if out != "short text" {
		t.Errorf("expected trimmed passthrough, got %q", out)
	}

	long, err := p.Rewrite(context.Background(), models.ContentItem{Text: strings.Repeat("a", 50)}, models.Source{})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if len([]rune(long)) > 20 {
		t.Errorf("passthrough exceeded budget: %q", long)
	}
}
