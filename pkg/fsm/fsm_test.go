package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string
type action string

const (
	off     light  = "off"
	on      light  = "on"
	broken  light  = "broken"
	blink   light  = "blink"
	toggle  action = "toggle"
	smash   action = "smash"
	flicker action = "flicker"
	pulse   action = "pulse"
	reset   action = "reset"
)

func newLight(t *testing.T, enter map[light]Hook[light, action]) *Machine[light, action] {
	t.Helper()
	return New(off, Config[light, action]{
		States: map[light]StateConfig[light, action]{
			off: {
				OnEnter: enter[off],
				Allow:   map[action]light{toggle: on},
			},
			on: {
				OnEnter: enter[on],
				Allow:   map[action]light{toggle: off, flicker: blink},
				Ignore:  []action{pulse},
			},
			blink: {
				OnEnter: enter[blink],
				// Overrides the Any target for reset.
				Allow: map[action]light{reset: on},
			},
			broken: {OnEnter: enter[broken]},
		},
		Any: StateConfig[light, action]{
			Allow: map[action]light{smash: broken, reset: off},
		},
	})
}

func TestInitialState(t *testing.T) {
	m := newLight(t, nil)
	assert.Equal(t, off, m.Current())
	assert.Empty(t, m.History())
}

func TestCanMergesAny(t *testing.T) {
	m := newLight(t, nil)

	assert.True(t, m.Can(toggle))
	assert.True(t, m.Can(smash))
	assert.False(t, m.Can(flicker))
}

func TestTriggerRecordsHistoryAndNotifies(t *testing.T) {
	m := newLight(t, nil)

	var seen []Transition[light, action]
	m.Transitions().Add(func(tr Transition[light, action]) { seen = append(seen, tr) })

	require.NoError(t, m.Trigger(toggle, "payload"))
	require.NoError(t, m.Trigger(smash, nil))

	assert.Equal(t, broken, m.Current())
	require.Len(t, seen, 2)
	assert.Equal(t, Transition[light, action]{From: off, To: on, Name: toggle, Payload: "payload"}, seen[0])
	assert.Equal(t, m.History(), seen)
}

func TestInvalidTransition(t *testing.T) {
	m := newLight(t, nil)

	notified := false
	m.Transitions().Add(func(Transition[light, action]) { notified = true })

	err := m.Trigger(flicker, nil)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, off, invalid.From)
	assert.Equal(t, flicker, invalid.Name)
	assert.Equal(t, off, m.Current())
	assert.False(t, notified)
}

func TestIgnoredTransition(t *testing.T) {
	m := newLight(t, nil)
	require.NoError(t, m.Trigger(toggle, nil))

	require.NoError(t, m.Trigger(pulse, nil))
	assert.Equal(t, on, m.Current())
	assert.Len(t, m.History(), 1)
}

func TestStateOverridesAnyPerKey(t *testing.T) {
	m := newLight(t, nil)
	require.NoError(t, m.Trigger(toggle, nil))
	require.NoError(t, m.Trigger(flicker, nil))

	allowed := m.Allowed()
	assert.Equal(t, on, allowed[reset])
	assert.Equal(t, broken, allowed[smash])

	require.NoError(t, m.Trigger(reset, nil))
	assert.Equal(t, on, m.Current())

	require.NoError(t, m.Trigger(reset, nil))
	assert.Equal(t, off, m.Current())
}

func TestHooksCanCascade(t *testing.T) {
	var m *Machine[light, action]
	m = newLight(t, map[light]Hook[light, action]{
		on: func(tr Transition[light, action]) error {
			if tr.From == off {
				return m.Trigger(flicker, nil)
			}
			return nil
		},
	})

	require.NoError(t, m.Trigger(toggle, nil))
	assert.Equal(t, blink, m.Current())

	var names []action
	for _, tr := range m.History() {
		names = append(names, tr.Name)
	}
	assert.Equal(t, []action{toggle, flicker}, names)
}

func TestHookErrorsAreContained(t *testing.T) {
	exitCalls := 0
	m := New(off, Config[light, action]{
		States: map[light]StateConfig[light, action]{
			off: {
				Allow:  map[action]light{toggle: on},
				OnExit: func(Transition[light, action]) error { exitCalls++; return errors.New("exit boom") },
			},
			on: {
				Allow:   map[action]light{toggle: off},
				OnEnter: func(Transition[light, action]) error { return errors.New("enter boom") },
			},
		},
	})

	require.NoError(t, m.Trigger(toggle, nil))
	assert.Equal(t, on, m.Current())
	assert.Equal(t, 1, exitCalls)
	assert.Len(t, m.History(), 1)

	require.NoError(t, m.Trigger(toggle, nil))
	assert.Equal(t, off, m.Current())
}

func TestCustomInvalidHandler(t *testing.T) {
	var gotFrom light
	m := New(off, Config[light, action]{
		States: map[light]StateConfig[light, action]{off: {}},
		OnInvalid: func(from light, name action) error {
			gotFrom = from
			return nil
		},
	})

	require.NoError(t, m.Trigger(smash, nil))
	assert.Equal(t, off, gotFrom)
	assert.Equal(t, off, m.Current())
}

func TestHistoryLimit(t *testing.T) {
	m := New(off, Config[light, action]{
		States: map[light]StateConfig[light, action]{
			off: {Allow: map[action]light{toggle: on}},
			on:  {Allow: map[action]light{toggle: off}},
		},
		HistoryLimit: 3,
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Trigger(toggle, i))
	}

	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, 2, h[0].Payload)
	assert.Equal(t, 4, h[2].Payload)
}
