package commentator

import (
	"sync"
	"time"
)

// CommentHistory remembers the last delivered comment per person so the
// same person is not commented on again within the cooldown.
type CommentHistory struct {
	mu      sync.RWMutex
	entries map[string]PersonToCommentOn
}

// NewCommentHistory creates an empty history.
func NewCommentHistory() *CommentHistory {
	return &CommentHistory{entries: make(map[string]PersonToCommentOn)}
}

// Record stores entry as the latest comment for its person.
func (h *CommentHistory) Record(entry PersonToCommentOn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[entry.Person.PersonID] = entry
}

// Last returns the latest comment for personID.
func (h *CommentHistory) Last(personID string) (PersonToCommentOn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entries[personID]
	return e, ok
}

// CanCommentOn reports whether personID has no prior comment or the last
// one was spoken at least cooldown before now.
func (h *CommentHistory) CanCommentOn(personID string, now time.Time, cooldown time.Duration) bool {
	last, ok := h.Last(personID)
	if !ok || last.SpokenOn.IsZero() {
		return true
	}
	return now.Sub(last.SpokenOn) >= cooldown
}

// Clear forgets everything.
func (h *CommentHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[string]PersonToCommentOn)
}

// Len returns the number of persons in the history.
func (h *CommentHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns every recorded comment.
func (h *CommentHistory) Entries() []PersonToCommentOn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PersonToCommentOn, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, e)
	}
	return out
}
