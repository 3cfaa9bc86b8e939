// Package faceapi is a client for an Azure Face compatible detection and
// identification service.
//
// The service detects faces in still images, returning short-lived face ids,
// and identifies those ids against a trained person group. Persons are
// created in the group, given one or more reference faces, and the group is
// retrained before new persons can be identified.
//
// Example usage:
//
//	client, _ := faceapi.New(
//	    faceapi.WithEndpoint(os.Getenv("FACE_API_ENDPOINT")),
//	    faceapi.WithAPIKey(os.Getenv("FACE_API_KEY")),
//	    faceapi.WithPersonGroup("visitors"),
//	)
//	faces, err := client.DetectFaces(ctx, jpeg)
//	if faceapi.IsThrottled(err) {
//	    // back off
//	}
package faceapi

import (
	"fmt"
	"time"
)

// Rectangle is a face bounding box in pixels.
type Rectangle struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TargetFace renders the rectangle in the targetFace query format.
func (r Rectangle) TargetFace() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Left, r.Top, r.Width, r.Height)
}

// Emotion holds per-emotion confidence scores.
type Emotion struct {
	Anger     float64 `json:"anger"`
	Contempt  float64 `json:"contempt"`
	Disgust   float64 `json:"disgust"`
	Fear      float64 `json:"fear"`
	Happiness float64 `json:"happiness"`
	Neutral   float64 `json:"neutral"`
	Sadness   float64 `json:"sadness"`
	Surprise  float64 `json:"surprise"`
}

// Dominant returns the emotion with the highest score.
func (e Emotion) Dominant() (string, float64) {
	scores := []struct {
		name  string
		score float64
	}{
		{"anger", e.Anger}, {"contempt", e.Contempt}, {"disgust", e.Disgust},
		{"fear", e.Fear}, {"happiness", e.Happiness}, {"neutral", e.Neutral},
		{"sadness", e.Sadness}, {"surprise", e.Surprise},
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}
	return best.name, best.score
}

// HairColor is one candidate hair color.
type HairColor struct {
	Color      string  `json:"color"`
	Confidence float64 `json:"confidence"`
}

// Hair describes baldness and hair color.
type Hair struct {
	Bald      float64     `json:"bald"`
	Invisible bool        `json:"invisible"`
	HairColor []HairColor `json:"hairColor"`
}

// FacialHair scores.
type FacialHair struct {
	Moustache float64 `json:"moustache"`
	Beard     float64 `json:"beard"`
	Sideburns float64 `json:"sideburns"`
}

// Makeup flags.
type Makeup struct {
	EyeMakeup bool `json:"eyeMakeup"`
	LipMakeup bool `json:"lipMakeup"`
}

// Accessory is a worn accessory such as headwear or a mask.
type Accessory struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Attributes are the optional face attributes returned by detect.
type Attributes struct {
	Age         float64     `json:"age,omitempty"`
	Gender      string      `json:"gender,omitempty"`
	Smile       float64     `json:"smile,omitempty"`
	Glasses     string      `json:"glasses,omitempty"`
	Emotion     *Emotion    `json:"emotion,omitempty"`
	Hair        *Hair       `json:"hair,omitempty"`
	FacialHair  *FacialHair `json:"facialHair,omitempty"`
	Makeup      *Makeup     `json:"makeup,omitempty"`
	Accessories []Accessory `json:"accessories,omitempty"`
}

// DetectedFace is one face returned by detect.
type DetectedFace struct {
	FaceID        string      `json:"faceId"`
	FaceRectangle Rectangle   `json:"faceRectangle"`
	Attributes    *Attributes `json:"faceAttributes,omitempty"`
}

// Candidate is a possible identity for a face.
type Candidate struct {
	PersonID   string  `json:"personId"`
	Confidence float64 `json:"confidence"`
}

// IdentifyResult lists candidates for one queried face, best first.
type IdentifyResult struct {
	FaceID     string      `json:"faceId"`
	Candidates []Candidate `json:"candidates"`
}

// Top returns the best candidate, if any.
func (r IdentifyResult) Top() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	best := r.Candidates[0]
	for _, c := range r.Candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

// Person is a member of a person group.
type Person struct {
	PersonID         string   `json:"personId"`
	Name             string   `json:"name"`
	UserData         string   `json:"userData,omitempty"`
	PersistedFaceIDs []string `json:"persistedFaceIds,omitempty"`
}

// TrainingState is the person group training state.
type TrainingState string

const (
	TrainingNotStarted TrainingState = "notstarted"
	TrainingRunning    TrainingState = "running"
	TrainingSucceeded  TrainingState = "succeeded"
	TrainingFailed     TrainingState = "failed"
)

// TrainingStatus is returned by the training status endpoint.
type TrainingStatus struct {
	Status             TrainingState `json:"status"`
	CreatedDateTime    time.Time     `json:"createdDateTime"`
	LastActionDateTime time.Time     `json:"lastActionDateTime,omitempty"`
	Message            string        `json:"message,omitempty"`
}

// Done reports whether training reached a terminal state.
func (s TrainingStatus) Done() bool {
	return s.Status == TrainingSucceeded || s.Status == TrainingFailed
}
