package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedPost is one post recorded by the simulator.
type SimulatedPost struct {
	ID       string
	Text     string
	PostedAt time.Time
}

// Simulator records posts in memory instead of publishing them. It is the
// default delivery mode for dry runs and local development.
type Simulator struct {
	mu    sync.Mutex
	posts []SimulatedPost
}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Publish(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := SimulatedPost{
		ID:       uuid.NewString(),
		Text:     text,
		PostedAt: time.Now(),
	}
	s.posts = append(s.posts, post)
	return post.ID, nil
}

// Posts returns a copy of everything published so far.
func (s *Simulator) Posts() []SimulatedPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SimulatedPost, len(s.posts))
	copy(out, s.posts)
	return out
}

var _ Publisher = (*Simulator)(nil)
