package presence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-commentator/internal/log"
	"github.com/teslashibe/go-commentator/pkg/clock"
)

const poll = 200 * time.Millisecond

type staticSource struct{ err error }

func (s staticSource) CurrentFrame() ([]byte, error) { return []byte("frame"), s.err }

// scriptedScorer returns its scores in order, then repeats the last one.
type scriptedScorer struct {
	mu     sync.Mutex
	scores []float64
	resets int
}

func (s *scriptedScorer) Score([]byte) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scores) == 0 {
		return 0, nil
	}
	v := s.scores[0]
	if len(s.scores) > 1 {
		s.scores = s.scores[1:]
	}
	return v, nil
}

func (s *scriptedScorer) Reset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

func newTestDetector(scores ...float64) (*Detector, *clock.Fake, *scriptedScorer) {
	fake := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	scorer := &scriptedScorer{scores: scores}
	d := New(staticSource{}, scorer,
		WithThreshold(0.1),
		WithHysteresis(2, 3),
		WithClock(fake),
		WithLogger(log.Discard()),
	)
	return d, fake, scorer
}

func TestHysteresis(t *testing.T) {
	d, fake, scorer := newTestDetector(0.5, 0.0, 0.5, 0.5, 0.0, 0.0, 0.5, 0.0, 0.0, 0.0)

	var changes []bool
	d.OnChange(func(v bool) { changes = append(changes, v) })

	require.NoError(t, d.Start(poll))
	assert.Equal(t, 1, scorer.resets)

	step := func() { fake.Advance(poll) }

	step() // 0.5
	step() // 0.0 resets the run
	assert.False(t, d.IsDetected())
	step() // 0.5
	step() // 0.5 enters
	assert.True(t, d.IsDetected())
	step() // 0.0
	step() // 0.0
	step() // 0.5 resets the still run
	assert.True(t, d.IsDetected())
	step()
	step()
	step() // third still sample leaves
	assert.False(t, d.IsDetected())

	assert.Equal(t, []bool{true, false}, changes)
}

func TestStopClearsPresence(t *testing.T) {
	d, fake, _ := newTestDetector(1.0)

	require.NoError(t, d.Start(poll))
	fake.Advance(2 * poll)
	require.True(t, d.IsDetected())

	d.Stop()
	d.Stop()
	assert.False(t, d.IsDetected())
	assert.Equal(t, 0, fake.Pending())

	fake.Advance(time.Second)
	assert.False(t, d.IsDetected())
}

func TestStartValidatesInterval(t *testing.T) {
	d, _, _ := newTestDetector()
	assert.ErrorIs(t, d.Start(0), ErrInvalidInterval)
}

func TestStartIsIdempotent(t *testing.T) {
	d, fake, scorer := newTestDetector(0)
	require.NoError(t, d.Start(poll))
	require.NoError(t, d.Start(poll))
	assert.Equal(t, 1, scorer.resets)
	assert.Equal(t, 1, fake.Pending())
}

func TestFrameErrorsSkipSample(t *testing.T) {
	fake := clock.NewFake(time.Now())
	d := New(staticSource{err: errors.New("no frame yet")}, &scriptedScorer{scores: []float64{1}},
		WithHysteresis(1, 1), WithClock(fake), WithLogger(log.Discard()))

	require.NoError(t, d.Start(poll))
	fake.Advance(5 * poll)
	assert.False(t, d.IsDetected())
	assert.Equal(t, 1, fake.Pending(), "sampling continues")
}
