// internal/server/sessions.go
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSessionTTL = 30 * time.Minute

type pendingRun struct {
	text    string
	created time.Time
}

// sessions holds submitted debate texts until their stream is opened.
type sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]pendingRun
	now     func() time.Time
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{ttl: ttl, pending: map[string]pendingRun{}, now: time.Now}
}

// put stores text under a new token and drops expired entries.
func (s *sessions) put(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, p := range s.pending {
		if now.Sub(p.created) > s.ttl {
			delete(s.pending, token)
		}
	}
	token := uuid.NewString()
	s.pending[token] = pendingRun{text: text, created: now}
	return token
}

// take removes and returns the text stored under token.
func (s *sessions) take(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[token]
	if !ok {
		return "", false
	}
	delete(s.pending, token)
	if s.now().Sub(p.created) > s.ttl {
		return "", false
	}
	return p.text, true
}
