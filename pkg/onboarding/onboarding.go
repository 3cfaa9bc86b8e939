// Package onboarding creates and removes persons in the face service and
// keeps the settings store in step.
//
// Creating a person takes several calls: create the person, add the captured
// face, retrain the person group and wait for training to finish, then save
// the name. If a step after creation fails the person is removed again.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-commentator/pkg/clock"
	"github.com/teslashibe/go-commentator/pkg/commentator"
	"github.com/teslashibe/go-commentator/pkg/event"
	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

var (
	// ErrNameRequired is returned when creating a person without a name.
	ErrNameRequired = errors.New("onboarding: name required")

	// ErrNoImage is returned when the face has no captured frame.
	ErrNoImage = errors.New("onboarding: face has no image")

	// ErrTrainingFailed is returned when person group training fails.
	ErrTrainingFailed = errors.New("onboarding: training failed")
)

// FaceService is the part of the face service used for onboarding.
type FaceService interface {
	CreatePerson(ctx context.Context, name, userData string) (string, error)
	AddPersonFace(ctx context.Context, personID string, image []byte, target *faceapi.Rectangle) (string, error)
	RemovePerson(ctx context.Context, personID string) error
	TrainPersonGroup(ctx context.Context) error
	TrainingStatus(ctx context.Context) (*faceapi.TrainingStatus, error)
}

// Config holds onboarding timings.
type Config struct {
	// PollInterval is the training status poll interval.
	PollInterval time.Duration

	// TrainTimeout bounds the wait for training.
	TrainTimeout time.Duration

	// CreateTimeout bounds one create request from the Commentator.
	CreateTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// DefaultConfig returns default timings.
func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Second,
		TrainTimeout:  60 * time.Second,
		CreateTimeout: 90 * time.Second,
		Clock:         clock.Real(),
		Logger:        slog.Default(),
	}
}

// Created is dispatched after a person was created.
type Created struct {
	Person commentator.IdentifiedPerson
}

// Onboarder creates and removes persons.
type Onboarder struct {
	cfg    Config
	faces  FaceService
	store  settings.Store
	logger *slog.Logger

	// OnCreated fires after every successful Create.
	OnCreated event.Dispatcher[Created]
}

// New creates an Onboarder.
func New(faces FaceService, store settings.Store, cfg Config) *Onboarder {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = def.TrainTimeout
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = def.CreateTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return &Onboarder{
		cfg:    cfg,
		faces:  faces,
		store:  store,
		logger: cfg.Logger.With("component", "onboarding"),
	}
}

// Create adds a person named name with face as its reference image.
func (o *Onboarder) Create(ctx context.Context, face commentator.DetectedFace, name string) (commentator.IdentifiedPerson, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return commentator.IdentifiedPerson{}, ErrNameRequired
	}
	if len(face.Image) == 0 {
		return commentator.IdentifiedPerson{}, ErrNoImage
	}

	personID, err := o.faces.CreatePerson(ctx, name, "face:"+face.FaceID)
	if err != nil {
		return commentator.IdentifiedPerson{}, fmt.Errorf("onboarding: create person: %w", err)
	}
	log := o.logger.With("person_id", personID, "name", name)

	person, err := o.complete(ctx, personID, name, face)
	if err != nil {
		log.Warn("onboarding failed, removing person", "error", err)
		if rmErr := o.faces.RemovePerson(context.WithoutCancel(ctx), personID); rmErr != nil && !faceapi.IsNotFound(rmErr) {
			log.Error("remove person after failure", "error", rmErr)
		}
		return commentator.IdentifiedPerson{}, err
	}

	log.Info("person created")
	o.OnCreated.Dispatch(Created{Person: person})
	return person, nil
}

func (o *Onboarder) complete(ctx context.Context, personID, name string, face commentator.DetectedFace) (commentator.IdentifiedPerson, error) {
	var target *faceapi.Rectangle
	if r := face.Detection.FaceRectangle; r.Width > 0 && r.Height > 0 {
		target = &r
	}
	if _, err := o.faces.AddPersonFace(ctx, personID, face.Image, target); err != nil {
		return commentator.IdentifiedPerson{}, fmt.Errorf("onboarding: add face: %w", err)
	}

	if err := o.train(ctx); err != nil {
		return commentator.IdentifiedPerson{}, err
	}

	p := settings.Person{PersonID: personID, Name: name}
	err := settings.Update(ctx, o.store, func(s *settings.Settings) error {
		s.SetPerson(p, o.cfg.Clock.Now())
		p, _ = s.Person(personID)
		return nil
	})
	if err != nil {
		return commentator.IdentifiedPerson{}, fmt.Errorf("onboarding: save settings: %w", err)
	}

	return commentator.IdentifiedPerson{
		PersonID:   personID,
		Confidence: 1,
		Face:       face,
		Settings:   p,
	}, nil
}

// Train retrains the person group and waits until training finished.
func (o *Onboarder) Train(ctx context.Context) error {
	return o.train(ctx)
}

// train starts training and waits for a terminal status.
func (o *Onboarder) train(ctx context.Context) error {
	if err := o.faces.TrainPersonGroup(ctx); err != nil {
		return fmt.Errorf("onboarding: train: %w", err)
	}

	deadline := o.cfg.Clock.Now().Add(o.cfg.TrainTimeout)
	for {
		status, err := o.faces.TrainingStatus(ctx)
		if err != nil {
			return fmt.Errorf("onboarding: training status: %w", err)
		}
		switch status.Status {
		case faceapi.TrainingSucceeded:
			return nil
		case faceapi.TrainingFailed:
			return fmt.Errorf("%w: %s", ErrTrainingFailed, status.Message)
		}

		if !o.cfg.Clock.Now().Before(deadline) {
			return faceapi.ErrTrainingTimeout
		}
		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (o *Onboarder) sleep(ctx context.Context, d time.Duration) error {
	wake := make(chan struct{})
	t := o.cfg.Clock.AfterFunc(d, func() { close(wake) })
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

// Remove deletes a person from the face service and the settings store and
// retrains the group. A person unknown to the service is still removed from
// the settings.
func (o *Onboarder) Remove(ctx context.Context, personID string) error {
	if err := o.faces.RemovePerson(ctx, personID); err != nil && !faceapi.IsNotFound(err) {
		return fmt.Errorf("onboarding: remove person: %w", err)
	}

	err := settings.Update(ctx, o.store, func(s *settings.Settings) error {
		s.RemovePerson(personID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("onboarding: save settings: %w", err)
	}

	if err := o.faces.TrainPersonGroup(ctx); err != nil {
		o.logger.Warn("retrain after remove failed", "error", err)
	}
	o.logger.Info("person removed", "person_id", personID)
	return nil
}

// Commentator is the part of the Commentator that requests persons.
type Commentator interface {
	OnCreatePerson() *event.Dispatcher[commentator.CreatePersonEvent]
	CreatePersonOK(ctx context.Context, cycleID string, person commentator.IdentifiedPerson) error
	CancelCreatePerson(ctx context.Context, cycleID string) error
}

// Attach answers the Commentator's create requests until ctx is done or the
// returned func is called.
func (o *Onboarder) Attach(ctx context.Context, c Commentator) (detach func()) {
	return c.OnCreatePerson().Subscribe(func(ev commentator.CreatePersonEvent) {
		go o.answer(ctx, c, ev)
	})
}

func (o *Onboarder) answer(ctx context.Context, c Commentator, ev commentator.CreatePersonEvent) {
	createCtx, cancel := context.WithTimeout(ctx, o.cfg.CreateTimeout)
	defer cancel()

	person, err := o.Create(createCtx, ev.Face, ev.Name)
	if err != nil {
		o.logger.Error("create person", "cycle_id", ev.CycleID, "error", err)
		if err := c.CancelCreatePerson(ctx, ev.CycleID); err != nil {
			o.logger.Warn("cancel create person", "error", err)
		}
		return
	}
	if err := c.CreatePersonOK(ctx, ev.CycleID, person); err != nil {
		o.logger.Warn("report created person", "error", err)
	}
}
