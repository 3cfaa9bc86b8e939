package commentator

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

type fakePresence struct {
	mu       sync.Mutex
	detected bool
	started  int
	stopped  int
	changes  event.Dispatcher[bool]
}

func (p *fakePresence) Start(interval time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	return nil
}

func (p *fakePresence) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
	p.detected = false
}

func (p *fakePresence) IsDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detected
}

func (p *fakePresence) OnChange(fn func(bool)) func() {
	return p.changes.Subscribe(fn)
}

func (p *fakePresence) Set(present bool) {
	p.mu.Lock()
	p.detected = present
	p.mu.Unlock()
	p.changes.Dispatch(present)
}

func (p *fakePresence) counts() (started, stopped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.stopped
}

type fakeFaces struct {
	mu       sync.Mutex
	detect   func(ctx context.Context) ([]DetectedFace, error)
	running  bool
	detected event.Dispatcher[[]DetectedFace]
}

func (f *fakeFaces) Start(detect func(ctx context.Context) ([]DetectedFace, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detect = detect
	f.running = true
}

func (f *fakeFaces) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeFaces) OnFacesDetected(fn func([]DetectedFace)) func() {
	return f.detected.Subscribe(fn)
}

func (f *fakeFaces) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeFaces) Emit(ids ...string) {
	faces := make([]DetectedFace, len(ids))
	for i, id := range ids {
		faces[i] = DetectedFace{FaceID: id, Image: []byte("jpeg-" + id)}
	}
	f.detected.Dispatch(faces)
}

func (f *fakeFaces) Detect(ctx context.Context) ([]DetectedFace, error) {
	f.mu.Lock()
	detect := f.detect
	f.mu.Unlock()
	return detect(ctx)
}

type fakeSettings struct {
	mu sync.Mutex
	s  *settings.Settings
}

func newFakeSettings(names map[string]string) *fakeSettings {
	s := settings.New()
	for id, name := range names {
		s.SetPerson(settings.Person{PersonID: id, Name: name}, time.Time{})
	}
	return &fakeSettings{s: s}
}

func (f *fakeSettings) Load(ctx context.Context) (*settings.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s, nil
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// blockingSpeaker holds every Speak call until release is closed.
type blockingSpeaker struct {
	release <-chan struct{}
}

func (s *blockingSpeaker) Speak(ctx context.Context, text string) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeVideo struct {
	mu      sync.Mutex
	running bool
}

func (v *fakeVideo) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = true
	return nil
}

func (v *fakeVideo) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = false
}

func (v *fakeVideo) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

func (v *fakeVideo) CurrentFrame() ([]byte, error) {
	return []byte("frame"), nil
}

type greeter struct{}

func (greeter) CommentFor(ctx context.Context, face DetectedFace, person IdentifiedPerson) (string, error) {
	return "Hello " + person.Name(), nil
}

type fakeGate struct{ faces int }

func (g fakeGate) CountFaces(jpeg []byte) (int, error) {
	return g.faces, nil
}
