// Package settings persists per-person display settings keyed by the face
// service person id.
package settings

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a person has no stored settings.
var ErrNotFound = errors.New("settings: person not found")

// Person holds what the commentator knows about one identified person.
type Person struct {
	PersonID  string    `json:"personId"`
	Name      string    `json:"name"`
	Nickname  string    `json:"nickname,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName returns the nickname if set, else the name.
func (p Person) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Name
}

// Settings is the full settings document.
type Settings struct {
	Persons map[string]Person `json:"persons"`
}

// New returns empty settings.
func New() *Settings {
	return &Settings{Persons: make(map[string]Person)}
}

// Person returns the settings for id.
func (s *Settings) Person(id string) (Person, bool) {
	if s == nil || s.Persons == nil {
		return Person{}, false
	}
	p, ok := s.Persons[id]
	return p, ok
}

// PersonOrDefault returns the stored person, or a person named fallback.
func (s *Settings) PersonOrDefault(id, fallback string) Person {
	if p, ok := s.Person(id); ok && strings.TrimSpace(p.DisplayName()) != "" {
		return p
	}
	return Person{PersonID: id, Name: fallback}
}

// SetPerson inserts or replaces a person, stamping timestamps.
func (s *Settings) SetPerson(p Person, now time.Time) {
	if s.Persons == nil {
		s.Persons = make(map[string]Person)
	}
	if existing, ok := s.Persons[p.PersonID]; ok && !existing.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.Persons[p.PersonID] = p
}

// RemovePerson deletes a person. Returns false if it was not present.
func (s *Settings) RemovePerson(id string) bool {
	if _, ok := s.Persons[id]; !ok {
		return false
	}
	delete(s.Persons, id)
	return true
}

// List returns persons sorted by name.
func (s *Settings) List() []Person {
	out := make([]Person, 0, len(s.Persons))
	for _, p := range s.Persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].PersonID < out[j].PersonID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Store defines the interface for settings persistence backends.
type Store interface {
	// Load returns the stored settings, or empty settings if none exist.
	Load(ctx context.Context) (*Settings, error)

	// Save replaces the stored settings.
	Save(ctx context.Context, s *Settings) error

	// Close releases any resources held by the store.
	Close() error
}

// Update loads the settings, applies fn and saves the result.
func Update(ctx context.Context, store Store, fn func(*Settings) error) error {
	s, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return store.Save(ctx, s)
}
