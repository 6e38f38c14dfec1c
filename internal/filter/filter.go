package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/dmoreira/transferwire/internal/models"
)

// Reason codes why an item was rejected, surfaced in debug logs.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonRepost        Reason = "repost"
	ReasonReply         Reason = "reply"
	ReasonLowEngagement Reason = "low_engagement"
	ReasonDeniedTerm    Reason = "denied_term"
	ReasonNotAllowed    Reason = "not_allowed"
)

// Decision is the outcome of filtering one item.
type Decision struct {
	OK     bool
	Reason Reason
}

// Config holds the global filter rules; per-source overrides come from the
// source itself at check time.
type Config struct {
	MinEngagement int
	AllowTerms    []string
	DenyTerms     []string
}

// Filter decides whether a content item qualifies for republication.
// It is pure: no side effects, identical inputs give identical decisions.
type Filter struct {
	cfg    Config
	folder cases.Caser
}

func New(cfg Config) *Filter {
	return &Filter{
		cfg:    cfg,
		folder: cases.Fold(),
	}
}

// Check applies, in order: repost/reply rejection, engagement threshold
// (per-source when set, global otherwise), deny terms (global plus
// per-source), then the allow list (a non-empty list must match).
func (f *Filter) Check(item models.ContentItem, source models.Source) Decision {
	if item.IsRepost {
		return Decision{Reason: ReasonRepost}
	}
	if item.IsReply {
		return Decision{Reason: ReasonReply}
	}

	threshold := f.cfg.MinEngagement
	if source.MinScore > 0 {
		threshold = source.MinScore
	}
	if threshold > 0 && item.Engagement.Score() < threshold {
		return Decision{Reason: ReasonLowEngagement}
	}

	folded := f.folder.String(item.Text)

	for _, term := range f.cfg.DenyTerms {
		if f.matches(folded, term) {
			return Decision{Reason: ReasonDeniedTerm}
		}
	}
	for _, term := range source.DenyTerms {
		if f.matches(folded, term) {
			return Decision{Reason: ReasonDeniedTerm}
		}
	}

	allow := f.cfg.AllowTerms
	if len(source.AllowTerms) > 0 {
		allow = source.AllowTerms
	}
	if len(allow) > 0 {
		matched := false
		for _, term := range allow {
			if f.matches(folded, term) {
				matched = true
				break
			}
		}
		if !matched {
			return Decision{Reason: ReasonNotAllowed}
		}
	}

	return Decision{OK: true}
}

// matches reports whether term occurs in the folded text. Multi-word terms
// match as substrings; single words must match a whole token so a deny
// term like "nfl" cannot hit inside an unrelated word.
func (f *Filter) matches(foldedText, term string) bool {
	term = f.folder.String(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(foldedText, term)
	}
	for _, token := range tokenize(foldedText) {
		if token == term {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
