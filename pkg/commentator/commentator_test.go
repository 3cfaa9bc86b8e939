package commentator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-commentator/internal/log"
	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/fsm"
)

const waitFor = 2 * time.Second

type harness struct {
	c        *Commentator
	clock    *clock.Fake
	presence *fakePresence
	faces    *fakeFaces
	client   *faceapi.Mock
	speaker  *fakeSpeaker
	video    *fakeVideo
	ctx      context.Context
	cancel   context.CancelFunc
	runErr   chan error
}

// known maps face ids to person ids. Unknown faces get no candidates.
func identifyAs(known map[string]string, confidence float64) func(context.Context, []string) ([]faceapi.IdentifyResult, error) {
	return func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
		out := make([]faceapi.IdentifyResult, len(ids))
		for i, id := range ids {
			out[i] = faceapi.IdentifyResult{FaceID: id}
			if pid, ok := known[id]; ok {
				out[i].Candidates = []faceapi.Candidate{{PersonID: pid, Confidence: confidence}}
			}
		}
		return out, nil
	}
}

func newHarness(t *testing.T, deps func(*Deps), opts ...Option) *harness {
	t.Helper()

	h := &harness{
		clock:    clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		presence: &fakePresence{},
		faces:    &fakeFaces{},
		client:   faceapi.NewMock(),
		speaker:  &fakeSpeaker{},
		video:    &fakeVideo{},
		runErr:   make(chan error, 1),
	}

	d := Deps{
		Presence: h.presence,
		Faces:    h.faces,
		Client:   h.client,
		Settings: newFakeSettings(map[string]string{"p-ada": "Ada", "p-bob": "Bob"}),
		Speaker:  h.speaker,
		Video:    h.video,
		Comments: greeter{},
	}
	if deps != nil {
		deps(&d)
	}

	base := []Option{
		WithClock(h.clock),
		WithLogger(log.Discard()),
		WithPostCommentDelay(0),
		WithAskTimeout(0),
	}
	c, err := New(d, append(base, opts...)...)
	require.NoError(t, err)
	h.c = c

	h.ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.runErr <- c.Run(h.ctx) }()
	t.Cleanup(func() {
		h.cancel()
		<-h.runErr
	})
	return h
}

func (h *harness) waitState(t *testing.T, s State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.c.State() == s }, waitFor, time.Millisecond,
		"want state %s, have %s", s, h.c.State())
	// Let the entry hook finish.
	h.snapshot(t)
}

func (h *harness) watching(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.Start(h.ctx))
	h.waitState(t, StateDetectPresence)
	h.presence.Set(true)
	h.waitState(t, StateDetectFaces)
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.c.Snapshot(h.ctx)
	require.NoError(t, err)
	return snap
}

func (h *harness) transitions(t *testing.T) []Transition {
	t.Helper()
	var out []Transition
	for _, tr := range h.snapshot(t).Transitions {
		out = append(out, tr.Name)
	}
	return out
}

func (h *harness) waitSpoken(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.speaker.Spoken()) >= n }, waitFor, time.Millisecond)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestNewValidatesConfig(t *testing.T) {
	h := newHarness(t, nil)
	_, err := New(h.c.deps, WithConfidenceThreshold(1.5))
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, StateIdle, h.c.State())
	assert.Equal(t, statusIdle().Text, h.c.Status().Text)

	require.NoError(t, h.c.Start(h.ctx))
	h.waitState(t, StateDetectPresence)
	assert.True(t, h.video.Running())
	started, _ := h.presence.counts()
	assert.Equal(t, 1, started)
	assert.Equal(t, StateDetectPresence, h.c.Status().State)

	require.NoError(t, h.c.Stop(h.ctx))
	assert.Equal(t, StateIdle, h.c.State())
	assert.False(t, h.video.Running())
	_, stopped := h.presence.counts()
	assert.Equal(t, 1, stopped)

	// Stopping again is a no-op.
	require.NoError(t, h.c.Stop(h.ctx))
	_, stopped = h.presence.counts()
	assert.Equal(t, 1, stopped)
}

func TestStartWhileActiveIsInvalid(t *testing.T) {
	tests := []struct {
		state State
		enter func(t *testing.T, release <-chan struct{}) *harness
	}{
		{
			state: StateDetectPresence,
			enter: func(t *testing.T, _ <-chan struct{}) *harness {
				h := newHarness(t, nil)
				require.NoError(t, h.c.Start(h.ctx))
				h.waitState(t, StateDetectPresence)
				return h
			},
		},
		{
			state: StateDetectFaces,
			enter: func(t *testing.T, _ <-chan struct{}) *harness {
				h := newHarness(t, nil)
				h.watching(t)
				return h
			},
		},
		{
			state: StateIdentifyFaces,
			enter: func(t *testing.T, release <-chan struct{}) *harness {
				h := newHarness(t, nil)
				h.client.IdentifyFunc = func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
					<-release
					return identifyAs(map[string]string{"f1": "p-ada"}, 0.9)(ctx, ids)
				}
				h.watching(t)
				h.faces.Emit("f1")
				h.waitState(t, StateIdentifyFaces)
				return h
			},
		},
		{
			state: StateCommentOnNextPerson,
			enter: func(t *testing.T, release <-chan struct{}) *harness {
				h := newHarness(t, func(d *Deps) { d.Speaker = &blockingSpeaker{release: release} })
				h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada"}, 0.9)
				h.watching(t)
				h.faces.Emit("f1")
				h.waitState(t, StateCommentOnNextPerson)
				return h
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			release := make(chan struct{})
			h := tt.enter(t, release)
			defer close(release)

			before := len(h.snapshot(t).Transitions)

			err := h.c.Start(h.ctx)
			var invalid *fsm.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.state, invalid.From)

			snap := h.snapshot(t)
			assert.Equal(t, tt.state, snap.State)
			assert.Len(t, snap.Transitions, before)
		})
	}
}

func TestPresenceDrivesFaceDetection(t *testing.T) {
	h := newHarness(t, nil)
	h.watching(t)
	assert.True(t, h.faces.Running())
	assert.Equal(t, statusHello().Text, h.c.Status().Text)

	h.presence.Set(false)
	h.waitState(t, StateDetectPresence)
	assert.False(t, h.faces.Running())
	assert.Equal(t, statusLeftAlone().Text, h.c.Status().Text)

	h.presence.Set(true)
	h.waitState(t, StateDetectFaces)
	assert.True(t, h.faces.Running())
}

func TestPresenceIgnoredWhileIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.presence.Set(true)

	snap := h.snapshot(t)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Transitions)
}

func TestKnownPersonIsCommentedOn(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada"}, 0.9)

	var mu sync.Mutex
	var speakEvents []SpeakEvent
	h.c.OnSpeak().Add(func(e SpeakEvent) {
		mu.Lock()
		defer mu.Unlock()
		speakEvents = append(speakEvents, e)
	})

	h.watching(t)
	h.faces.Emit("f1")

	h.waitSpoken(t, 1)
	h.waitState(t, StateDetectFaces)
	assert.Equal(t, []string{"Hello Ada"}, h.speaker.Spoken())

	snap := h.snapshot(t)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "p-ada", snap.History[0].Person.PersonID)
	assert.Equal(t, CommentDelivered, snap.History[0].State)
	assert.Equal(t, h.clock.Now(), snap.History[0].SpokenOn)
	assert.Equal(t, statusAnythingElse().Text, snap.Status.Text)

	assert.Equal(t, []Transition{
		TransitionStart,
		TransitionPresenceDetected,
		TransitionDetectedFaces,
		TransitionIdentifyFacesCompleted,
		TransitionProcessAnyNewFacesCompleted,
		TransitionCommentOnNextPersonDelivered,
		TransitionCommentOnNextPersonNoMore,
	}, h.transitions(t))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, speakEvents, 1)
	assert.Equal(t, "Hello Ada", speakEvents[0].Comment)
	assert.Equal(t, 0, speakEvents[0].Index)
	assert.Equal(t, 1, speakEvents[0].Count)
}

func TestCooldownSkipsRecentComments(t *testing.T) {
	h := newHarness(t, nil, WithCommentCooldown(time.Minute))
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada", "f2": "p-ada", "f3": "p-ada"}, 0.9)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitSpoken(t, 1)
	h.waitState(t, StateDetectFaces)

	h.faces.Emit("f2")
	require.Eventually(t, func() bool {
		return h.c.Status().Text == statusStillHere().Text
	}, waitFor, time.Millisecond)
	assert.Len(t, h.speaker.Spoken(), 1)
	assert.Contains(t, h.transitions(t), TransitionCommentOnNextPersonTooEarly)

	h.clock.Advance(time.Minute)
	h.faces.Emit("f3")
	h.waitSpoken(t, 2)
}

func TestEveryoneIsCommentedOnInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada", "f2": "p-bob"}, 0.9)

	h.watching(t)
	h.faces.Emit("f1", "f2")

	h.waitSpoken(t, 2)
	h.waitState(t, StateDetectFaces)
	assert.Equal(t, []string{"Hello Ada", "Hello Bob"}, h.speaker.Spoken())
}

func TestDuplicatePersonIsCommentedOnOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada", "f2": "p-ada"}, 0.9)

	asked := make(chan AskToCreatePersonEvent, 1)
	h.c.OnAskToCreatePerson().Add(func(e AskToCreatePersonEvent) { asked <- e })

	h.watching(t)
	h.faces.Emit("f1", "f2")
	h.waitSpoken(t, 1)
	h.waitState(t, StateDetectFaces)

	assert.Equal(t, []string{"Hello Ada"}, h.speaker.Spoken())
	assert.Empty(t, asked)
}

func TestLowConfidenceIsTreatedAsUnknown(t *testing.T) {
	h := newHarness(t, nil, WithConfidenceThreshold(0.6))
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada"}, 0.59)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)
}

func TestUnknownPersonIsCreatedAndCommentedOn(t *testing.T) {
	h := newHarness(t, nil)

	asked := make(chan AskToCreatePersonEvent, 1)
	h.c.OnAskToCreatePerson().Add(func(e AskToCreatePersonEvent) { asked <- e })

	created := make(chan CreatePersonEvent, 1)
	h.c.OnCreatePerson().Add(func(e CreatePersonEvent) {
		created <- e
		person := IdentifiedPerson{PersonID: "p-new", Face: e.Face, Confidence: 1}
		person.Settings.PersonID = "p-new"
		person.Settings.Name = e.Name
		go func() { _ = h.c.CreatePersonOK(h.ctx, e.CycleID, person) }()
	})

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)
	assert.False(t, h.faces.Running())

	select {
	case e := <-asked:
		assert.Equal(t, "f1", e.Face.FaceID)
		assert.Equal(t, 1, e.Remaining)
	case <-time.After(waitFor):
		t.Fatal("no ask event")
	}

	require.NoError(t, h.c.AcceptCreatePerson(h.ctx, "  Grace "))

	select {
	case e := <-created:
		assert.Equal(t, "Grace", e.Name)
		assert.Equal(t, "f1", e.Face.FaceID)
	case <-time.After(waitFor):
		t.Fatal("no create event")
	}

	h.waitSpoken(t, 1)
	h.waitState(t, StateDetectFaces)
	assert.Equal(t, []string{"Hello Grace"}, h.speaker.Spoken())
}

func TestDeclineCreatePerson(t *testing.T) {
	h := newHarness(t, nil)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)

	require.NoError(t, h.c.DeclineCreatePerson(h.ctx))
	h.waitState(t, StateDetectFaces)
	assert.Equal(t, statusNoHardFeelings().Text, h.c.Status().Text)
	assert.Empty(t, h.speaker.Spoken())
}

func TestAskToCreatePersonTimesOut(t *testing.T) {
	h := newHarness(t, nil, WithAskTimeout(10*time.Second))

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)
	require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, time.Millisecond)

	h.clock.Advance(9 * time.Second)
	assert.Equal(t, StateAskToCreatePerson, h.c.State())

	h.clock.Advance(time.Second)
	h.waitState(t, StateDetectFaces)
	assert.Contains(t, h.transitions(t), TransitionAskToCreatePersonTimeout)
}

func TestAnswerStopsAskTimer(t *testing.T) {
	h := newHarness(t, nil, WithAskTimeout(10*time.Second))

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)
	require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, time.Millisecond)

	require.NoError(t, h.c.DeclineCreatePerson(h.ctx))
	assert.Equal(t, 0, h.clock.Pending())
}

func TestCreatePersonWithoutHandlerIsCanceled(t *testing.T) {
	h := newHarness(t, nil)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)

	require.NoError(t, h.c.AcceptCreatePerson(h.ctx, "Grace"))
	h.waitState(t, StateDetectFaces)
	assert.Contains(t, h.transitions(t), TransitionCreatePersonCanceled)
}

func TestAnswersOutsideAskAreInvalid(t *testing.T) {
	h := newHarness(t, nil)

	var invalid *fsm.InvalidTransitionError
	assert.ErrorAs(t, h.c.AcceptCreatePerson(h.ctx, "Grace"), &invalid)
	assert.ErrorAs(t, h.c.DeclineCreatePerson(h.ctx), &invalid)
	assert.ErrorAs(t, h.c.CreatePersonOK(h.ctx, h.snapshot(t).Cycle.ID, IdentifiedPerson{PersonID: "p"}), &invalid)
	assert.ErrorAs(t, h.c.CancelCreatePerson(h.ctx, h.snapshot(t).Cycle.ID), &invalid)
	assert.ErrorIs(t, h.c.AcceptCreatePerson(h.ctx, " "), ErrNameRequired)
}

func TestThrottledIdentifyWaits(t *testing.T) {
	h := newHarness(t, nil, WithThrottleWait(5*time.Second))
	var throttle sync.Once
	h.client.IdentifyFunc = func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
		var err error
		throttle.Do(func() {
			err = &faceapi.ThrottlingError{Err: &faceapi.APIError{StatusCode: 429, Operation: "identify"}}
		})
		if err != nil {
			return nil, err
		}
		return identifyAs(map[string]string{"f2": "p-bob"}, 0.9)(ctx, ids)
	}

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateWaitForThrottling)
	assert.False(t, h.faces.Running())
	assert.Equal(t, statusThrottled().Text, h.c.Status().Text)
	require.Eventually(t, func() bool { return h.clock.Pending() == 1 }, waitFor, time.Millisecond)

	h.clock.Advance(5 * time.Second)
	h.waitState(t, StateDetectFaces)
	assert.True(t, h.faces.Running())

	// The throttled faces were dropped; a fresh detection starts over.
	h.faces.Emit("f2")
	h.waitSpoken(t, 1)
	assert.Equal(t, []string{"Hello Bob"}, h.speaker.Spoken())
}

func TestThrottledDetectWaits(t *testing.T) {
	h := newHarness(t, nil)
	h.client.DetectFunc = func(ctx context.Context, image []byte) ([]faceapi.DetectedFace, error) {
		return nil, &faceapi.ThrottlingError{Err: &faceapi.APIError{StatusCode: 429, Operation: "detect"}}
	}

	h.watching(t)
	_, err := h.faces.Detect(h.ctx)
	assert.True(t, faceapi.IsThrottled(err))
	h.waitState(t, StateWaitForThrottling)
}

func TestDetectReturnsFacesWithFrame(t *testing.T) {
	h := newHarness(t, nil)
	h.client.DetectFunc = func(ctx context.Context, image []byte) ([]faceapi.DetectedFace, error) {
		assert.Equal(t, []byte("frame"), image)
		return []faceapi.DetectedFace{{FaceID: "f1"}, {FaceID: "f2"}}, nil
	}

	h.watching(t)
	faces, err := h.faces.Detect(h.ctx)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, "f2", faces[1].FaceID)
	assert.Equal(t, []byte("frame"), faces[1].Image)
}

func TestGateSkipsRemoteDetect(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Gate = fakeGate{faces: 0} })

	h.watching(t)
	faces, err := h.faces.Detect(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.Equal(t, 0, h.client.CallCount("DetectFaces"))
}

func TestIdentifyFailureRetriesDetection(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
		return nil, errors.New("boom")
	}

	h.watching(t)
	h.faces.Emit("f1")
	require.Eventually(t, func() bool {
		for _, name := range h.transitions(t) {
			if name == TransitionIdentifyFacesFailed {
				return true
			}
		}
		return false
	}, waitFor, time.Millisecond)
	h.waitState(t, StateDetectFaces)
	assert.Empty(t, h.speaker.Spoken())
}

func TestFacesDuringCycleStartNextCycle(t *testing.T) {
	h := newHarness(t, nil)

	release := make(chan struct{})
	var first sync.Once
	identify := identifyAs(map[string]string{"f1": "p-ada", "f2": "p-bob"}, 0.9)
	h.client.IdentifyFunc = func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
		first.Do(func() { <-release })
		return identify(ctx, ids)
	}

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateIdentifyFaces)

	h.faces.Emit("f2")
	require.Eventually(t, func() bool {
		return h.snapshot(t).Cycle.FacesDuringCycle == 1
	}, waitFor, time.Millisecond)
	close(release)

	h.waitSpoken(t, 2)
	assert.Equal(t, []string{"Hello Ada", "Hello Bob"}, h.speaker.Spoken())
}

func TestStaleResultsAreDropped(t *testing.T) {
	h := newHarness(t, nil)

	release := make(chan struct{})
	h.client.IdentifyFunc = func(ctx context.Context, ids []string) ([]faceapi.IdentifyResult, error) {
		<-release
		return identifyAs(map[string]string{"f1": "p-ada"}, 0.9)(context.Background(), ids)
	}

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateIdentifyFaces)

	require.NoError(t, h.c.Stop(h.ctx))
	close(release)

	time.Sleep(20 * time.Millisecond)
	snap := h.snapshot(t)

	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Cycle.IdentifiedPersons)
	assert.Empty(t, h.speaker.Spoken())
}

func TestStopClearsCommentHistory(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = identifyAs(map[string]string{"f1": "p-ada"}, 0.9)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitSpoken(t, 1)
	h.waitState(t, StateDetectFaces)

	require.NoError(t, h.c.Stop(h.ctx))
	assert.Empty(t, h.snapshot(t).History)
	assert.False(t, h.faces.Running())
}

func TestFacesWhileAskingStartNextCycle(t *testing.T) {
	h := newHarness(t, nil)
	h.client.IdentifyFunc = identifyAs(map[string]string{"f2": "p-bob"}, 0.9)

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)

	h.faces.Emit("f2")
	snap := h.snapshot(t)
	assert.Equal(t, StateAskToCreatePerson, snap.State)
	assert.Equal(t, 1, snap.Cycle.FacesDuringCycle)

	require.NoError(t, h.c.DeclineCreatePerson(h.ctx))
	h.waitSpoken(t, 1)
	assert.Equal(t, []string{"Hello Bob"}, h.speaker.Spoken())
}

func TestStaleCreateAnswerIsRejected(t *testing.T) {
	h := newHarness(t, nil)

	created := make(chan CreatePersonEvent, 1)
	h.c.OnCreatePerson().Add(func(e CreatePersonEvent) { created <- e })

	h.watching(t)
	h.faces.Emit("f1")
	h.waitState(t, StateAskToCreatePerson)
	require.NoError(t, h.c.AcceptCreatePerson(h.ctx, "Grace"))

	var e CreatePersonEvent
	select {
	case e = <-created:
	case <-time.After(waitFor):
		t.Fatal("no create event")
	}

	person := IdentifiedPerson{PersonID: "p-new", Face: e.Face, Confidence: 1}
	person.Settings.PersonID = "p-new"
	person.Settings.Name = e.Name

	assert.ErrorIs(t, h.c.CreatePersonOK(h.ctx, "earlier-cycle", person), ErrStaleCycle)
	assert.ErrorIs(t, h.c.CancelCreatePerson(h.ctx, "earlier-cycle"), ErrStaleCycle)
	assert.Equal(t, StateCreatePerson, h.c.State())

	require.NoError(t, h.c.CreatePersonOK(h.ctx, e.CycleID, person))
	h.waitSpoken(t, 1)
	assert.Equal(t, []string{"Hello Grace"}, h.speaker.Spoken())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	h.watching(t)

	h.cancel()
	select {
	case err := <-h.runErr:
		assert.ErrorIs(t, err, context.Canceled)
		h.runErr <- err
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateIdle, h.c.State())
	assert.False(t, h.video.Running())

	assert.ErrorIs(t, h.c.Start(context.Background()), ErrNotRunning)
}

func TestSnapshotAllowedTransitions(t *testing.T) {
	h := newHarness(t, nil)
	snap := h.snapshot(t)
	assert.Equal(t, []Transition{TransitionStart, TransitionStop}, snap.Allowed)
}
