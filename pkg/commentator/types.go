package commentator

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

// Sequencing errors. They indicate a bug in the order of cycle updates and
// are logged at error level.
var (
	ErrNoPersonToCreate    = errors.New("commentator: no person scheduled for creation")
	ErrNoPersonToCommentOn = errors.New("commentator: no person scheduled for a comment")
	ErrNoFacesToIdentify   = errors.New("commentator: no faces to identify")
	ErrNotRunning          = errors.New("commentator: not running")
	ErrMissingDependency   = errors.New("commentator: missing dependency")
)

// DetectedFace is a face found in a captured frame.
type DetectedFace struct {
	FaceID    string               `json:"faceId"`
	Image     []byte               `json:"-"`
	Detection faceapi.DetectedFace `json:"detection"`
}

// ImageDataURL renders the frame as a data URL for the UI.
func (f DetectedFace) ImageDataURL() string {
	if len(f.Image) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Image)
}

// IdentifiedPerson is a detected face matched to a known person.
type IdentifiedPerson struct {
	PersonID   string          `json:"personId"`
	Confidence float64         `json:"confidence"`
	Face       DetectedFace    `json:"face"`
	Settings   settings.Person `json:"settings"`
}

// Name returns the name to address the person by.
func (p IdentifiedPerson) Name() string {
	return p.Settings.DisplayName()
}

// CreateState tracks an offer to remember an unknown face.
type CreateState string

const (
	CreateScheduled CreateState = "scheduled"
	CreateCreated   CreateState = "created"
	CreateDeclined  CreateState = "declined"
	CreateTimeout   CreateState = "timeout"
)

// PersonToCreate is an unrecognized face offered for onboarding.
type PersonToCreate struct {
	Face          DetectedFace      `json:"face"`
	State         CreateState       `json:"state"`
	CreatedPerson *IdentifiedPerson `json:"createdPerson,omitempty"`
}

// CommentState tracks one planned comment.
type CommentState string

const (
	CommentScheduled CommentState = "scheduled"
	CommentSkipped   CommentState = "skipped"
	CommentDelivered CommentState = "delivered"
)

// PersonToCommentOn is a comment planned for an identified person.
type PersonToCommentOn struct {
	Person   IdentifiedPerson `json:"person"`
	Comment  string           `json:"comment"`
	SpokenOn time.Time        `json:"spokenOn,omitempty"`
	State    CommentState     `json:"state"`
}

// Status is what the UI shows.
type Status struct {
	State State  `json:"state"`
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// SpeakEvent is dispatched just before a comment is spoken.
type SpeakEvent struct {
	CycleID string           `json:"cycleId"`
	Person  IdentifiedPerson `json:"person"`
	Comment string           `json:"comment"`
	Index   int              `json:"index"`
	Count   int              `json:"count"`
}

// AskToCreatePersonEvent asks the UI whether to remember a face.
type AskToCreatePersonEvent struct {
	CycleID   string       `json:"cycleId"`
	Face      DetectedFace `json:"face"`
	Remaining int          `json:"remaining"`
}

// CreatePersonEvent asks the onboarding handler to create a person. The
// handler answers with CreatePersonOK or CancelCreatePerson.
type CreatePersonEvent struct {
	CycleID string       `json:"cycleId"`
	Face    DetectedFace `json:"face"`
	Name    string       `json:"name"`
}
