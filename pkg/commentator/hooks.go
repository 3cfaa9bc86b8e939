package commentator

import (
	"context"
	"fmt"
)

const (
	timerThrottle = "throttle"
	timerAsk      = "ask"
	timerComment  = "comment"
)

func (c *Commentator) enterIdle(tr TransitionEvent) error {
	if tr.From == StateIdle {
		return nil
	}

	c.stopTimers()
	c.endSession()

	c.deps.Presence.Stop()
	c.deps.Video.Stop()
	c.deps.Faces.Stop()

	c.history.Clear()
	c.cycle = c.newCycle()
	c.identifiedInPresence = false

	c.setStatus(statusIdle())
	return nil
}

func (c *Commentator) enterDetectPresence(tr TransitionEvent) error {
	c.identifiedInPresence = false

	if tr.From != StateIdle {
		c.deps.Faces.Stop()
		c.playSound(Sounds.PlayAloneAgain)
		c.setStatus(statusLeftAlone())
		return nil
	}

	c.session, c.endSession = context.WithCancel(context.Background())

	var videoErr error
	if err := c.deps.Video.Start(c.session); err != nil {
		videoErr = fmt.Errorf("start video: %w", err)
	}
	if err := c.deps.Presence.Start(c.cfg.PresencePollInterval); err != nil {
		return fmt.Errorf("start presence detector: %w", err)
	}

	c.setStatus(statusWaitingForSomeone())
	return videoErr
}

func (c *Commentator) enterDetectFaces(tr TransitionEvent) error {
	prev := c.cycle
	c.cycle = c.newCycle()

	if !c.deps.Presence.IsDetected() {
		return c.machine.Trigger(TransitionNoPresenceDetected, nil)
	}

	c.deps.Faces.Start(c.detectFaces)

	if carried := prev.FacesDetectedDuringCycle(); len(carried) > 0 {
		c.logger.Debug("resuming with faces detected during last cycle", "faces", len(carried))
		c.onFacesDetected(carried)
		return nil
	}

	switch {
	case tr.From == StateDetectPresence:
		c.playSound(Sounds.PlayPresenceDetected)
		c.setStatus(statusHello())
	case prev.AllCommentsSkipped():
		c.setStatus(statusStillHere())
	case prev.AllCreationsRefused():
		c.setStatus(statusNoHardFeelings())
	case prev.AnyCommentDelivered():
		c.setStatus(statusAnythingElse())
	default:
		c.setStatus(statusLooking(c.identifiedInPresence))
	}
	return nil
}

func (c *Commentator) enterIdentifyFaces(tr TransitionEvent) error {
	faces := c.cycle.FacesToIdentify()
	if len(faces) == 0 {
		c.trigger(TransitionIdentifyFacesFailed, ErrNoFacesToIdentify)
		return ErrNoFacesToIdentify
	}

	c.playSound(Sounds.PlayIdentifyingFaces)
	c.setStatus(statusIdentifying(len(faces)))

	go c.identify(c.session, c.cycle, faces)
	return nil
}

func (c *Commentator) enterWaitForThrottling(tr TransitionEvent) error {
	c.deps.Faces.Stop()
	c.setStatus(statusThrottled())

	cycle := c.cycle
	c.startTimer(timerThrottle, c.cfg.ThrottleWait, func() {
		if cycle != c.cycle || !c.machine.Can(TransitionWaitForThrottlingCompleted) {
			return
		}
		c.trigger(TransitionWaitForThrottlingCompleted, nil)
	})
	return nil
}

func (c *Commentator) enterProcessAnyNewFaces(tr TransitionEvent) error {
	if next, ok := c.cycle.NextPersonToCreate(); ok {
		return c.machine.Trigger(TransitionProcessAnyNewFacesNext, next.Face.FaceID)
	}

	persons := c.cycle.IdentifiedPersons()
	if len(persons) == 0 {
		return c.machine.Trigger(TransitionProcessAnyNewFacesCompleted, 0)
	}

	c.setStatus(statusThinking())
	go c.writeComments(c.session, c.cycle, persons)
	return nil
}

func (c *Commentator) enterAskToCreatePerson(tr TransitionEvent) error {
	next, ok := c.cycle.NextPersonToCreate()
	if !ok {
		return ErrNoPersonToCreate
	}

	c.deps.Faces.Stop()
	c.cycle.DiscardFacesDetectedDuringCycle()

	remaining := len(c.cycle.RemainingPersonsToCreate())
	c.setStatus(statusAsking(remaining))
	c.askToCreate.Dispatch(AskToCreatePersonEvent{
		CycleID:   c.cycle.ID,
		Face:      next.Face,
		Remaining: remaining,
	})

	if c.cfg.AskTimeout > 0 {
		cycle := c.cycle
		c.startTimer(timerAsk, c.cfg.AskTimeout, func() {
			if cycle != c.cycle || !c.machine.Can(TransitionAskToCreatePersonTimeout) {
				return
			}
			if err := c.cycle.DidTimeoutOnCreatePerson(); err != nil {
				c.logger.Error("ask timeout", "error", err)
				return
			}
			c.logger.Info("nobody answered, moving on", "face_id", next.Face.FaceID)
			c.trigger(TransitionAskToCreatePersonTimeout, nil)
		})
	}
	return nil
}

func (c *Commentator) exitAskToCreatePerson(tr TransitionEvent) error {
	c.stopTimer(timerAsk)
	return nil
}

func (c *Commentator) enterCreatePerson(tr TransitionEvent) error {
	next, ok := c.cycle.NextPersonToCreate()
	if !ok {
		return ErrNoPersonToCreate
	}
	name, _ := tr.Payload.(string)

	if c.createPerson.Len() == 0 {
		c.logger.Warn("no onboarding handler, skipping person creation")
		if err := c.cycle.DidDeclineToCreatePerson(); err != nil {
			return err
		}
		return c.machine.Trigger(TransitionCreatePersonCanceled, nil)
	}

	c.setStatus(statusCreating(name))
	c.createPerson.Dispatch(CreatePersonEvent{
		CycleID: c.cycle.ID,
		Face:    next.Face,
		Name:    name,
	})
	return nil
}

func (c *Commentator) enterCommentOnNextPerson(tr TransitionEvent) error {
	entry, idx, count, ok := c.cycle.NextPersonToCommentOn()
	if !ok {
		return c.machine.Trigger(TransitionCommentOnNextPersonNoMore, nil)
	}

	now := c.clock.Now()
	if !c.history.CanCommentOn(entry.Person.PersonID, now, c.cfg.CommentCooldown) {
		c.logger.Debug("commented recently, skipping", "person_id", entry.Person.PersonID)
		if err := c.cycle.DidSkipCommentForPerson(); err != nil {
			return err
		}
		return c.machine.Trigger(TransitionCommentOnNextPersonTooEarly, entry.Person.PersonID)
	}

	c.setStatus(statusSpeaking(entry.Person.Name(), idx, count))
	c.speak.Dispatch(SpeakEvent{
		CycleID: c.cycle.ID,
		Person:  entry.Person,
		Comment: entry.Comment,
		Index:   idx,
		Count:   count,
	})

	go c.deliver(c.session, c.cycle, entry, now)
	return nil
}
