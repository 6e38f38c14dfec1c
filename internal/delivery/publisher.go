package delivery

import (
	"context"
	"errors"
)

// Publisher pushes one formatted post to the public feed and returns the
// platform's delivery id.
type Publisher interface {
	Publish(ctx context.Context, text string) (string, error)
}

// Kind classifies a delivery failure.
type Kind int

const (
	// Transient failures (timeouts, platform rate limits, network) are
	// retried a bounded number of times within the same cycle.
	Transient Kind = iota
	// Permanent failures (auth, content rejected) drop the item and are
	// reported. The item stays deduped either way.
	Permanent
)

func (k Kind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// Error is a classified delivery failure.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return "delivery (" + e.Kind.String() + "): " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a delivery failure worth retrying.
// Unclassified errors count as transient: retrying an unknown failure is
// safe, silently dropping a post is not.
func IsTransient(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == Transient
	}
	return err != nil
}

// IsPermanent reports whether err is a permanent delivery failure.
func IsPermanent(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == Permanent
}

// MockPublisher is a configurable implementation for tests.
type MockPublisher struct {
	DeliveryID string
	Errs       []error // returned in order; nil entries mean success
	Calls      int
	Published  []string
}

func (m *MockPublisher) Publish(ctx context.Context, text string) (string, error) {
	call := m.Calls
	m.Calls++
	if call < len(m.Errs) && m.Errs[call] != nil {
		return "", m.Errs[call]
	}
	m.Published = append(m.Published, text)
	if m.DeliveryID != "" {
		return m.DeliveryID, nil
	}
	return "mock-delivery", nil
}
