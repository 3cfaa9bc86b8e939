package commentator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-commentator/pkg/faceapi"
	"github.com/teslashibe/go-commentator/pkg/settings"
)

// detectFaces is the periodic detector callback. It runs off the actor.
func (c *Commentator) detectFaces(ctx context.Context) ([]DetectedFace, error) {
	frame, err := c.deps.Video.CurrentFrame()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, nil
	}

	if c.deps.Gate != nil {
		n, err := c.deps.Gate.CountFaces(frame)
		switch {
		case err != nil:
			c.logger.Warn("local face gate failed", "error", err)
		case n == 0:
			return nil, nil
		}
	}

	detected, err := c.deps.Client.DetectFaces(ctx, frame)
	if err != nil {
		if faceapi.IsThrottled(err) {
			c.post(func() {
				if c.machine.Can(TransitionDetectFacesThrottled) {
					c.trigger(TransitionDetectFacesThrottled, err)
				}
			})
		}
		return nil, err
	}

	faces := make([]DetectedFace, 0, len(detected))
	for _, d := range detected {
		faces = append(faces, DetectedFace{FaceID: d.FaceID, Image: frame, Detection: d})
	}
	return faces, nil
}

func (c *Commentator) onFacesDetected(faces []DetectedFace) {
	if len(faces) == 0 {
		return
	}

	switch state := c.machine.Current(); state {
	case StateDetectFaces:
		c.cycle.AddFacesToIdentify(faces)
		c.trigger(TransitionDetectedFaces, len(faces))
	case StateIdentifyFaces, StateWaitForThrottling, StateProcessAnyNewFaces,
		StateAskToCreatePerson, StateCreatePerson, StateCommentOnNextPerson:
		c.cycle.DidDetectFacesDuringCycle(faces)
	default:
		c.logger.Debug("faces discarded", "state", state, "faces", len(faces))
	}
}

func (c *Commentator) onPresenceChanged(present bool) {
	name := TransitionNoPresenceDetected
	if present {
		name = TransitionPresenceDetected
	}
	c.trigger(name, nil)
}

type identifyOutcome struct {
	persons    []IdentifiedPerson
	duplicates []string
}

// identify resolves faces to persons off the actor and posts the result.
func (c *Commentator) identify(ctx context.Context, cycle *CycleData, faces []DetectedFace) {
	if c.cfg.IdentifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.IdentifyTimeout)
		defer cancel()
	}

	ids := make([]string, len(faces))
	for i, f := range faces {
		ids[i] = f.FaceID
	}

	var outcome identifyOutcome
	results, err := c.deps.Client.IdentifyFaces(ctx, ids)
	if err == nil {
		s, loadErr := c.deps.Settings.Load(ctx)
		if loadErr != nil {
			c.logger.Warn("load settings failed, using default names", "error", loadErr)
			s = settings.New()
		}
		outcome = c.resolve(faces, results, s)
	}

	c.post(func() { c.didIdentify(cycle, outcome, err) })
}

// resolve keeps candidates at or above the confidence threshold, one per
// person, first face wins.
func (c *Commentator) resolve(faces []DetectedFace, results []faceapi.IdentifyResult, s *settings.Settings) identifyOutcome {
	byID := make(map[string]DetectedFace, len(faces))
	for _, f := range faces {
		byID[f.FaceID] = f
	}

	var out identifyOutcome
	seen := make(map[string]bool)
	for _, r := range results {
		top, ok := r.Top()
		if !ok || top.Confidence < c.cfg.ConfidenceThreshold {
			continue
		}
		face, ok := byID[r.FaceID]
		if !ok {
			continue
		}
		if seen[top.PersonID] {
			out.duplicates = append(out.duplicates, r.FaceID)
			continue
		}
		seen[top.PersonID] = true
		out.persons = append(out.persons, IdentifiedPerson{
			PersonID:   top.PersonID,
			Confidence: top.Confidence,
			Face:       face,
			Settings:   s.PersonOrDefault(top.PersonID, c.cfg.DefaultName),
		})
	}
	return out
}

func (c *Commentator) didIdentify(cycle *CycleData, outcome identifyOutcome, err error) {
	if cycle != c.cycle {
		c.logger.Debug("dropping stale identify result")
		return
	}

	switch {
	case err == nil:
		if !c.machine.Can(TransitionIdentifyFacesCompleted) {
			return
		}
		c.cycle.DidIdentifyPersons(outcome.persons, outcome.duplicates...)
		if len(outcome.persons) > 0 {
			c.identifiedInPresence = true
		}
		c.logger.Info("faces identified",
			"known", len(outcome.persons),
			"unknown", len(c.cycle.RemainingPersonsToCreate()),
		)
		c.trigger(TransitionIdentifyFacesCompleted, len(outcome.persons))

	case faceapi.IsThrottled(err):
		if !c.machine.Can(TransitionIdentifyFacesThrottled) {
			return
		}
		c.cycle.ClearFacesToIdentify()
		c.trigger(TransitionIdentifyFacesThrottled, err)

	default:
		if errors.Is(err, context.Canceled) && c.session.Err() != nil {
			return
		}
		if !c.machine.Can(TransitionIdentifyFacesFailed) {
			return
		}
		c.logger.Error("identify failed", "error", err)
		c.trigger(TransitionIdentifyFacesFailed, err)
	}
}

// writeComments asks the comment provider for one comment per person.
func (c *Commentator) writeComments(ctx context.Context, cycle *CycleData, persons []IdentifiedPerson) {
	entries := make([]PersonToCommentOn, 0, len(persons))
	for _, p := range persons {
		text, err := c.deps.Comments.CommentFor(ctx, p.Face, p)
		if err != nil {
			c.logger.Warn("no comment for person", "person_id", p.PersonID, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		entries = append(entries, PersonToCommentOn{Person: p, Comment: text, State: CommentScheduled})
	}

	c.post(func() {
		if cycle != c.cycle || !c.machine.Can(TransitionProcessAnyNewFacesCompleted) {
			return
		}
		c.cycle.ScheduleComments(entries)
		c.trigger(TransitionProcessAnyNewFacesCompleted, len(entries))
	})
}

// deliver plays the cue and speaks the comment off the actor, then waits
// PostCommentDelay on the actor before marking it delivered.
func (c *Commentator) deliver(ctx context.Context, cycle *CycleData, entry PersonToCommentOn, spokenOn time.Time) {
	if c.deps.Sounds != nil {
		if err := c.deps.Sounds.PlayAboutToCommentOnPerson(ctx); err != nil && ctx.Err() == nil {
			c.logger.Debug("sound failed", "error", err)
		}
	}
	speakErr := c.deps.Speaker.Speak(ctx, entry.Comment)

	c.post(func() {
		if cycle != c.cycle || !c.machine.Is(StateCommentOnNextPerson) {
			return
		}
		if speakErr != nil {
			c.logger.Warn("speech failed", "person_id", entry.Person.PersonID, "error", speakErr)
		}

		c.startTimer(timerComment, c.cfg.PostCommentDelay, func() {
			next, _, _, ok := c.cycle.NextPersonToCommentOn()
			if cycle != c.cycle || !ok || next.Person.PersonID != entry.Person.PersonID {
				return
			}
			if err := c.cycle.DidCommentOnPerson(spokenOn); err != nil {
				c.logger.Error("mark comment delivered", "error", err)
				return
			}
			entry.SpokenOn = spokenOn
			entry.State = CommentDelivered
			c.history.Record(entry)
			c.trigger(TransitionCommentOnNextPersonDelivered, entry.Person.PersonID)
		})
	})
}
