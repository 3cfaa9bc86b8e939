package commentator

import (
	"context"
	"time"

	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

// PresenceDetector reports whether someone is in front of the camera.
type PresenceDetector interface {
	Start(interval time.Duration) error
	Stop()
	IsDetected() bool
	OnChange(fn func(present bool)) (unsubscribe func())
}

// FaceDetector runs a detect callback periodically while started.
type FaceDetector interface {
	Start(detect func(ctx context.Context) ([]DetectedFace, error))
	Stop()
	OnFacesDetected(fn func(faces []DetectedFace)) (unsubscribe func())
}

// FaceClient is the part of the face service the Commentator calls.
// Throttling must be reported as *faceapi.ThrottlingError.
type FaceClient interface {
	DetectFaces(ctx context.Context, image []byte) ([]faceapi.DetectedFace, error)
	IdentifyFaces(ctx context.Context, faceIDs []string) ([]faceapi.IdentifyResult, error)
}

// SettingsStore loads person settings.
type SettingsStore interface {
	Load(ctx context.Context) (*settings.Settings, error)
}

// Speaker speaks text aloud and returns once it has been spoken.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Sounds plays short audio cues.
type Sounds interface {
	PlayPresenceDetected(ctx context.Context) error
	PlayAloneAgain(ctx context.Context) error
	PlayIdentifyingFaces(ctx context.Context) error
	PlayAboutToCommentOnPerson(ctx context.Context) error
}

// VideoSource supplies camera frames as JPEG.
type VideoSource interface {
	Start(ctx context.Context) error
	Stop()
	CurrentFrame() ([]byte, error)
}

// CommentProvider writes the comment for an identified person.
type CommentProvider interface {
	CommentFor(ctx context.Context, face DetectedFace, person IdentifiedPerson) (string, error)
}

// FaceGate counts faces locally so frames without faces skip the remote call.
type FaceGate interface {
	CountFaces(jpeg []byte) (int, error)
}
