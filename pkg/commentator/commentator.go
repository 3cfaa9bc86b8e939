// Package commentator drives the face commentary cycle: wait for someone to
// show up, detect and identify their faces, offer to remember strangers and
// comment on everyone it knows.
//
// The Commentator is an actor. Run owns the state machine and all cycle
// data; public methods and asynchronous results are posted to its inbox and
// executed one at a time. Results that arrive after the cycle moved on are
// dropped.
//
// Example usage:
//
//	c, err := commentator.New(deps, commentator.WithLogger(log.L()))
//	if err != nil {
//	    return err
//	}
//	go c.Run(ctx)
//	if err := c.Start(ctx); err != nil {
//	    return err
//	}
package commentator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/fsm"
)

var (
	// ErrNameRequired is returned by AcceptCreatePerson for an empty name.
	ErrNameRequired = errors.New("commentator: name required")
	// ErrStaleCycle is returned for a create answer that belongs to an
	// earlier cycle.
	ErrStaleCycle = errors.New("commentator: answer belongs to another cycle")
)

// Commentator orchestrates presence, detection, identification, onboarding
// and comments.
type Commentator struct {
	cfg    Config
	deps   Deps
	clock  clock.Clock
	logger *slog.Logger

	inbox   chan func()
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run goroutine.
	machine              *fsm.Machine[State, Transition]
	cycle                *CycleData
	history              *CommentHistory
	status               Status
	identifiedInPresence bool
	session              context.Context
	endSession           context.CancelFunc
	timers               map[string]clock.Timer

	statusChanged event.Dispatcher[Status]
	speak         event.Dispatcher[SpeakEvent]
	askToCreate   event.Dispatcher[AskToCreatePersonEvent]
	createPerson  event.Dispatcher[CreatePersonEvent]
	transitions   event.Dispatcher[TransitionEvent]

	// Published copies for readers outside the actor.
	mu        sync.RWMutex
	pubState  State
	pubStatus Status
}

// New creates an idle Commentator. Call Run to start processing.
func New(deps Deps, opts ...Option) (*Commentator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 64
	}

	c := &Commentator{
		cfg:     cfg,
		deps:    deps,
		clock:   cfg.Clock,
		logger:  cfg.Logger.With("component", "commentator"),
		inbox:   make(chan func(), cfg.InboxSize),
		done:    make(chan struct{}),
		history: NewCommentHistory(),
		timers:  make(map[string]clock.Timer),
	}

	c.session, c.endSession = context.WithCancel(context.Background())
	c.endSession()

	c.cycle = c.newCycle()
	c.machine = fsm.New(StateIdle, c.machineConfig())
	c.machine.Transitions().Add(c.onTransition)

	c.status = statusIdle()
	c.pubState = StateIdle
	c.pubStatus = c.status

	return c, nil
}

// Run processes the inbox until ctx is done. On return the Commentator is
// stopped. Run may only be called once.
func (c *Commentator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("commentator: already running")
	}

	unsubPresence := c.deps.Presence.OnChange(func(present bool) {
		c.post(func() { c.onPresenceChanged(present) })
	})
	unsubFaces := c.deps.Faces.OnFacesDetected(func(faces []DetectedFace) {
		c.post(func() { c.onFacesDetected(faces) })
	})
	defer func() {
		unsubPresence()
		unsubFaces()
		close(c.done)
	}()

	c.logger.Info("commentator running")

	for {
		select {
		case <-ctx.Done():
			if !c.machine.Is(StateIdle) {
				if err := c.machine.Trigger(TransitionStop, nil); err != nil {
					c.logger.Error("stop on shutdown failed", "error", err)
				}
			}
			c.logger.Info("commentator stopped")
			return ctx.Err()
		case fn := <-c.inbox:
			fn()
		}
	}
}

// Start leaves idle and waits for someone to show up.
func (c *Commentator) Start(ctx context.Context) error {
	return c.call(ctx, func() error {
		return c.machine.Trigger(TransitionStart, nil)
	})
}

// Stop returns to idle from any state. Stopping an idle Commentator is a no-op.
func (c *Commentator) Stop(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.machine.Is(StateIdle) {
			return nil
		}
		return c.machine.Trigger(TransitionStop, nil)
	})
}

// AcceptCreatePerson answers the pending offer with the person's name.
func (c *Commentator) AcceptCreatePerson(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	return c.call(ctx, func() error {
		return c.machine.Trigger(TransitionAskToCreatePersonAccepted, name)
	})
}

// DeclineCreatePerson answers the pending offer with no.
func (c *Commentator) DeclineCreatePerson(ctx context.Context) error {
	return c.call(ctx, func() error {
		if !c.machine.Can(TransitionAskToCreatePersonDeclined) {
			return c.invalid(TransitionAskToCreatePersonDeclined)
		}
		if err := c.cycle.DidDeclineToCreatePerson(); err != nil {
			return err
		}
		return c.machine.Trigger(TransitionAskToCreatePersonDeclined, nil)
	})
}

// CreatePersonOK reports that the person requested by the CreatePersonEvent
// of cycleID exists.
func (c *Commentator) CreatePersonOK(ctx context.Context, cycleID string, person IdentifiedPerson) error {
	return c.call(ctx, func() error {
		if !c.machine.Can(TransitionCreatePersonOK) {
			return c.invalid(TransitionCreatePersonOK)
		}
		if cycleID != c.cycle.ID {
			return fmt.Errorf("%w: %s", ErrStaleCycle, cycleID)
		}
		if err := c.cycle.DidCreatePerson(person); err != nil {
			return err
		}
		c.logger.Info("person created", "person_id", person.PersonID, "name", person.Name())
		return c.machine.Trigger(TransitionCreatePersonOK, person.PersonID)
	})
}

// CancelCreatePerson reports that the person requested for cycleID could not
// be created.
func (c *Commentator) CancelCreatePerson(ctx context.Context, cycleID string) error {
	return c.call(ctx, func() error {
		if !c.machine.Can(TransitionCreatePersonCanceled) {
			return c.invalid(TransitionCreatePersonCanceled)
		}
		if cycleID != c.cycle.ID {
			return fmt.Errorf("%w: %s", ErrStaleCycle, cycleID)
		}
		if err := c.cycle.DidDeclineToCreatePerson(); err != nil {
			return err
		}
		return c.machine.Trigger(TransitionCreatePersonCanceled, nil)
	})
}

// State returns the current state.
func (c *Commentator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pubState
}

// Status returns the current UI status.
func (c *Commentator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pubStatus
}

// Snapshot is a consistent view of the Commentator for the UI.
type Snapshot struct {
	State       State               `json:"state"`
	Status      Status              `json:"status"`
	Allowed     []Transition        `json:"allowed"`
	Cycle       CycleSummary        `json:"cycle"`
	History     []PersonToCommentOn `json:"history"`
	Transitions []TransitionEvent   `json:"transitions"`
}

// Snapshot returns the current state, cycle and comment history.
func (c *Commentator) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.call(ctx, func() error {
		allowed := make([]Transition, 0)
		for name := range c.machine.Allowed() {
			allowed = append(allowed, name)
		}
		sort.Slice(allowed, func(i, j int) bool { return allowed[i] < allowed[j] })

		history := c.history.Entries()
		sort.Slice(history, func(i, j int) bool { return history[i].SpokenOn.Before(history[j].SpokenOn) })

		snap = Snapshot{
			State:       c.machine.Current(),
			Status:      c.status,
			Allowed:     allowed,
			Cycle:       c.cycle.Summary(),
			History:     history,
			Transitions: c.machine.History(),
		}
		return nil
	})
	return snap, err
}

// OnStatusChanged is dispatched whenever the UI status changes.
func (c *Commentator) OnStatusChanged() *event.Dispatcher[Status] { return &c.statusChanged }

// OnSpeak is dispatched before each comment is spoken.
func (c *Commentator) OnSpeak() *event.Dispatcher[SpeakEvent] { return &c.speak }

// OnAskToCreatePerson is dispatched when an unknown face is offered for
// onboarding. Answer with AcceptCreatePerson or DeclineCreatePerson.
func (c *Commentator) OnAskToCreatePerson() *event.Dispatcher[AskToCreatePersonEvent] {
	return &c.askToCreate
}

// OnCreatePerson is dispatched when a person should be created. Answer with
// CreatePersonOK or CancelCreatePerson.
func (c *Commentator) OnCreatePerson() *event.Dispatcher[CreatePersonEvent] { return &c.createPerson }

// OnTransition is dispatched after every state change.
func (c *Commentator) OnTransition() *event.Dispatcher[TransitionEvent] { return &c.transitions }

// post queues fn for the actor. It never blocks once Run has returned.
func (c *Commentator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// call runs fn on the actor and waits for its result.
func (c *Commentator) call(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- func() { reply <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotRunning
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrNotRunning
		}
	}
}

func (c *Commentator) invalid(name Transition) error {
	return &fsm.InvalidTransitionError{From: c.machine.Current(), Name: name}
}

func (c *Commentator) trigger(name Transition, payload any) {
	if err := c.machine.Trigger(name, payload); err != nil {
		c.logger.Error("transition failed", "transition", name, "state", c.machine.Current(), "error", err)
	}
}

func (c *Commentator) newCycle() *CycleData {
	return NewCycleData(uuid.NewString(), c.clock.Now())
}

func (c *Commentator) onTransition(tr TransitionEvent) {
	c.mu.Lock()
	c.pubState = tr.To
	c.mu.Unlock()

	c.logger.Info("state changed", "from", tr.From, "to", tr.To, "transition", tr.Name, "cycle", c.cycle.ID)
	c.transitions.Dispatch(tr)
}

func (c *Commentator) setStatus(s Status) {
	s.State = c.machine.Current()
	c.status = s

	c.mu.Lock()
	c.pubStatus = s
	c.mu.Unlock()

	c.statusChanged.Dispatch(s)
}

// startTimer arms a named timer whose callback runs on the actor. Arming a
// name again replaces the previous timer.
func (c *Commentator) startTimer(name string, d time.Duration, fn func()) {
	c.stopTimer(name)

	var t clock.Timer
	fire := func() {
		if c.timers[name] != t {
			return
		}
		delete(c.timers, name)
		fn()
	}

	if d <= 0 {
		t = &immediateTimer{}
		c.timers[name] = t
		go c.post(fire)
		return
	}

	t = c.clock.AfterFunc(d, func() { c.post(fire) })
	c.timers[name] = t
}

func (c *Commentator) stopTimer(name string) {
	if t, ok := c.timers[name]; ok {
		t.Stop()
		delete(c.timers, name)
	}
}

func (c *Commentator) stopTimers() {
	for name := range c.timers {
		c.stopTimer(name)
	}
}

func (c *Commentator) playSound(play func(Sounds, context.Context) error) {
	if c.deps.Sounds == nil {
		return
	}
	ctx := c.session
	go func() {
		if err := play(c.deps.Sounds, ctx); err != nil && ctx.Err() == nil {
			c.logger.Debug("sound failed", "error", err)
		}
	}()
}

// immediateTimer stands in for a zero-delay timer so it can be replaced
// and stopped like a real one.
type immediateTimer struct{ stopped bool }

func (t *immediateTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}
