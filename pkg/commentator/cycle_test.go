package commentator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-commentator/pkg/settings"
)

func face(id string) DetectedFace {
	return DetectedFace{FaceID: id}
}

func person(id string, f DetectedFace) IdentifiedPerson {
	return IdentifiedPerson{PersonID: id, Face: f, Settings: settings.Person{PersonID: id, Name: id}}
}

func TestCycleSchedulesUnknownFaces(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	c.AddFacesToIdentify([]DetectedFace{face("f1"), face("f2"), face("f3")})

	c.DidIdentifyPersons([]IdentifiedPerson{person("p1", face("f1"))})

	assert.Len(t, c.IdentifiedPersons(), 1)
	remaining := c.RemainingPersonsToCreate()
	require.Len(t, remaining, 2)
	assert.Equal(t, "f2", remaining[0].Face.FaceID)
	assert.Equal(t, "f3", remaining[1].Face.FaceID)

	next, ok := c.NextPersonToCreate()
	require.True(t, ok)
	assert.Equal(t, "f2", next.Face.FaceID)
}

func TestCycleDeduplicatesPersons(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	c.AddFacesToIdentify([]DetectedFace{face("f1"), face("f2")})

	c.DidIdentifyPersons([]IdentifiedPerson{person("p1", face("f1"))}, "f2")
	assert.Len(t, c.IdentifiedPersons(), 1)
	assert.Empty(t, c.RemainingPersonsToCreate())

	c = NewCycleData("c2", time.Now())
	c.AddFacesToIdentify([]DetectedFace{face("f1"), face("f2")})
	c.DidIdentifyPersons([]IdentifiedPerson{person("p1", face("f1")), person("p1", face("f2"))})
	assert.Len(t, c.IdentifiedPersons(), 1)
	assert.Empty(t, c.RemainingPersonsToCreate())
}

func TestCycleCreateOutcomes(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	c.AddFacesToIdentify([]DetectedFace{face("f1"), face("f2"), face("f3")})
	c.DidIdentifyPersons(nil)

	require.NoError(t, c.DidCreatePerson(person("new", face("f1"))))
	require.NoError(t, c.DidDeclineToCreatePerson())
	assert.False(t, c.AllCreationsRefused())
	require.NoError(t, c.DidTimeoutOnCreatePerson())

	assert.ErrorIs(t, c.DidDeclineToCreatePerson(), ErrNoPersonToCreate)
	assert.ErrorIs(t, c.DidCreatePerson(person("x", face("f9"))), ErrNoPersonToCreate)

	states := make([]CreateState, 0, 3)
	for _, e := range c.PersonsToCreate() {
		states = append(states, e.State)
	}
	assert.Equal(t, []CreateState{CreateCreated, CreateDeclined, CreateTimeout}, states)

	identified := c.IdentifiedPersons()
	require.Len(t, identified, 1)
	assert.Equal(t, "new", identified[0].PersonID)
}

func TestCycleAllCreationsRefused(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	assert.False(t, c.AllCreationsRefused())

	c.AddFacesToIdentify([]DetectedFace{face("f1"), face("f2")})
	c.DidIdentifyPersons(nil)
	require.NoError(t, c.DidDeclineToCreatePerson())
	require.NoError(t, c.DidTimeoutOnCreatePerson())
	assert.True(t, c.AllCreationsRefused())
}

func TestCycleComments(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCycleData("c1", now)

	_, _, count, ok := c.NextPersonToCommentOn()
	assert.False(t, ok)
	assert.Zero(t, count)
	assert.ErrorIs(t, c.DidCommentOnPerson(now), ErrNoPersonToCommentOn)

	c.ScheduleComments([]PersonToCommentOn{
		{Person: person("p1", face("f1")), Comment: "one"},
		{Person: person("p2", face("f2")), Comment: "two"},
	})

	entry, idx, count, ok := c.NextPersonToCommentOn()
	require.True(t, ok)
	assert.Equal(t, "one", entry.Comment)
	assert.Equal(t, CommentScheduled, entry.State)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, count)

	require.NoError(t, c.DidSkipCommentForPerson())
	assert.False(t, c.AllCommentsSkipped())

	entry, idx, _, ok = c.NextPersonToCommentOn()
	require.True(t, ok)
	assert.Equal(t, "two", entry.Comment)
	assert.Equal(t, 1, idx)

	require.NoError(t, c.DidCommentOnPerson(now))
	assert.True(t, c.AnyCommentDelivered())

	all := c.PersonsToCommentOn()
	assert.Equal(t, CommentSkipped, all[0].State)
	assert.Equal(t, CommentDelivered, all[1].State)
	assert.Equal(t, now, all[1].SpokenOn)
}

func TestCycleAllCommentsSkipped(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	assert.False(t, c.AllCommentsSkipped())

	c.ScheduleComments([]PersonToCommentOn{{Person: person("p1", face("f1")), Comment: "hi"}})
	require.NoError(t, c.DidSkipCommentForPerson())
	assert.True(t, c.AllCommentsSkipped())
	assert.False(t, c.AnyCommentDelivered())
}

func TestCycleFacesDuringCycle(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	c.DidDetectFacesDuringCycle([]DetectedFace{face("f1")})
	c.DidDetectFacesDuringCycle([]DetectedFace{face("f2")})
	assert.Len(t, c.FacesDetectedDuringCycle(), 2)

	c.DiscardFacesDetectedDuringCycle()
	assert.Empty(t, c.FacesDetectedDuringCycle())
}

func TestCycleSummaryCopies(t *testing.T) {
	c := NewCycleData("c1", time.Now())
	c.AddFacesToIdentify([]DetectedFace{face("f1")})
	c.DidIdentifyPersons([]IdentifiedPerson{person("p1", face("f1"))})

	s := c.Summary()
	s.IdentifiedPersons[0].PersonID = "changed"
	assert.Equal(t, "p1", c.IdentifiedPersons()[0].PersonID)
	assert.Equal(t, 1, s.FacesToIdentify)

	c.ClearFacesToIdentify()
	assert.Empty(t, c.FacesToIdentify())
}

func TestDetectedFaceDataURL(t *testing.T) {
	assert.Empty(t, DetectedFace{}.ImageDataURL())
	assert.Equal(t, "data:image/jpeg;base64,anBlZw==", DetectedFace{Image: []byte("jpeg")}.ImageDataURL())
}
