package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/fsm"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

type fakeController struct {
	mu       sync.Mutex
	status   commentator.Status
	accepted []string
	startErr error
	snapshot commentator.Snapshot

	statusChanged event.Dispatcher[commentator.Status]
	speak         event.Dispatcher[commentator.SpeakEvent]
	ask           event.Dispatcher[commentator.AskToCreatePersonEvent]
	create        event.Dispatcher[commentator.CreatePersonEvent]
	transitions   event.Dispatcher[commentator.TransitionEvent]
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.status = commentator.Status{State: commentator.StateDetectPresence, Text: "waiting"}
	return nil
}

func (f *fakeController) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = commentator.Status{State: commentator.StateIdle}
	return nil
}

func (f *fakeController) AcceptCreatePerson(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return commentator.ErrNameRequired
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, name)
	return nil
}

func (f *fakeController) DeclineCreatePerson(context.Context) error {
	return &fsm.InvalidTransitionError{From: commentator.StateIdle, Name: commentator.TransitionAskToCreatePersonDeclined}
}

func (f *fakeController) Status() commentator.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Snapshot(context.Context) (commentator.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeController) OnStatusChanged() *event.Dispatcher[commentator.Status] {
	return &f.statusChanged
}
func (f *fakeController) OnSpeak() *event.Dispatcher[commentator.SpeakEvent] { return &f.speak }
func (f *fakeController) OnAskToCreatePerson() *event.Dispatcher[commentator.AskToCreatePersonEvent] {
	return &f.ask
}
func (f *fakeController) OnCreatePerson() *event.Dispatcher[commentator.CreatePersonEvent] {
	return &f.create
}
func (f *fakeController) OnTransition() *event.Dispatcher[commentator.TransitionEvent] {
	return &f.transitions
}

type fakeRemover struct{ removed []string }

func (r *fakeRemover) Remove(_ context.Context, id string) error {
	r.removed = append(r.removed, id)
	return nil
}

type frames struct{ frame []byte }

func (f frames) CurrentFrame() ([]byte, error) {
	if f.frame == nil {
		return nil, errors.New("no frame")
	}
	return f.frame, nil
}

func newTestServer(t *testing.T, deps Deps) (*Server, *fakeController) {
	t.Helper()
	ctl := &fakeController{status: commentator.Status{State: commentator.StateIdle, Text: "idle"}}
	deps.Controller = ctl
	if deps.Settings == nil {
		deps.Settings = settings.NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))
	}
	s, err := NewServer(deps, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, ctl
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, 2000)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}

func TestStatusStartStop(t *testing.T) {
	s, ctl := newTestServer(t, Deps{})

	resp, body := do(t, s, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"state":"idle"`)

	resp, body = do(t, s, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"state":"detectPresence"`)

	ctl.startErr = &fsm.InvalidTransitionError{From: commentator.StateDetectPresence, Name: commentator.TransitionStart}
	resp, _ = do(t, s, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, s, http.MethodPost, "/api/stop", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"state":"idle"`)
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	s, ctl := newTestServer(t, Deps{})
	ctl.startErr = errors.New("secret backend detail")

	resp, body := do(t, s, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "secret")
}

func TestAcceptAndDecline(t *testing.T) {
	s, ctl := newTestServer(t, Deps{})

	resp, _ := do(t, s, http.MethodPost, "/api/ask/accept", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"Ada"}, ctl.accepted)

	resp, _ = do(t, s, http.MethodPost, "/api/ask/accept", `{"name":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPost, "/api/ask/decline", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPersonsCRUD(t *testing.T) {
	remover := &fakeRemover{}
	s, _ := newTestServer(t, Deps{Remover: remover})

	resp, body := do(t, s, http.MethodPut, "/api/persons/p-ada", `{"name":"Ada Lovelace","nickname":"Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var p settings.Person
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "p-ada", p.PersonID)
	assert.Equal(t, "Ada", p.DisplayName())

	resp, body = do(t, s, http.MethodPut, "/api/persons/p-ada", `{"notes":"likes hats"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "likes hats", p.Notes)

	resp, _ = do(t, s, http.MethodPut, "/api/persons/p-new", `{"nickname":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, s, http.MethodGet, "/api/persons", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []settings.Person
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	resp, _ = do(t, s, http.MethodGet, "/api/persons/p-ada", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, s, http.MethodGet, "/api/persons/nobody", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, s, http.MethodDelete, "/api/persons/p-ada", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"p-ada"}, remover.removed)
}

func TestDeletePersonWithoutRemover(t *testing.T) {
	s, _ := newTestServer(t, Deps{})

	resp, _ := do(t, s, http.MethodDelete, "/api/persons/nobody", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	do(t, s, http.MethodPut, "/api/persons/p-bob", `{"name":"Bob"}`)
	resp, _ = do(t, s, http.MethodDelete, "/api/persons/p-bob", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHistoryAndSnapshot(t *testing.T) {
	s, ctl := newTestServer(t, Deps{})
	ctl.snapshot = commentator.Snapshot{
		State: commentator.StateDetectFaces,
		History: []commentator.PersonToCommentOn{{
			Person:   commentator.IdentifiedPerson{PersonID: "p-ada"},
			Comment:  "Nice hat",
			SpokenOn: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			State:    commentator.CommentDelivered,
		}},
	}

	resp, body := do(t, s, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Nice hat")

	resp, body = do(t, s, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"state":"detectFaces"`)
}

func TestFrame(t *testing.T) {
	s, _ := newTestServer(t, Deps{Frames: frames{frame: []byte{0xff, 0xd8, 0xff}}})
	resp, body := do(t, s, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, body)

	s, _ = newTestServer(t, Deps{Frames: frames{}})
	resp, _ = do(t, s, http.MethodGet, "/api/frame", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s, _ = newTestServer(t, Deps{})
	resp, _ = do(t, s, http.MethodGet, "/api/frame", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, Deps{})
	resp, _ := do(t, s, http.MethodGet, "/ws/status", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestCloseUnsubscribes(t *testing.T) {
	s, ctl := newTestServer(t, Deps{})
	assert.Equal(t, 1, ctl.statusChanged.Len())
	assert.Equal(t, 1, ctl.transitions.Len())
	s.Close()
	assert.Equal(t, 0, ctl.statusChanged.Len())
	assert.Equal(t, 0, ctl.speak.Len())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAccessLog(t *testing.T) {
	var out syncBuffer
	s, err := NewServer(Deps{
		Controller: &fakeController{},
		Settings:   settings.NewJSONStore(filepath.Join(t.TempDir(), "settings.json")),
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithAccessLog(&out))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	resp, _ := do(t, s, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "GET /api/status")
	}, time.Second, 10*time.Millisecond)
}
