package commentator

import "time"

// CycleData accumulates the results of one detect, identify, create and
// comment cycle. It is owned by the Commentator goroutine.
type CycleData struct {
	ID        string
	StartedAt time.Time

	facesToIdentify  []DetectedFace
	facesDuringCycle []DetectedFace
	identified       []IdentifiedPerson
	toCreate         []*PersonToCreate
	toComment        []*PersonToCommentOn
}

// NewCycleData creates empty cycle data.
func NewCycleData(id string, startedAt time.Time) *CycleData {
	return &CycleData{ID: id, StartedAt: startedAt}
}

// AddFacesToIdentify queues faces for the next identify call.
func (c *CycleData) AddFacesToIdentify(faces []DetectedFace) {
	c.facesToIdentify = append(c.facesToIdentify, faces...)
}

// FacesToIdentify returns the queued faces.
func (c *CycleData) FacesToIdentify() []DetectedFace {
	return append([]DetectedFace(nil), c.facesToIdentify...)
}

// ClearFacesToIdentify drops queued faces.
func (c *CycleData) ClearFacesToIdentify() {
	c.facesToIdentify = nil
}

// DidDetectFacesDuringCycle keeps faces that arrived while the cycle was
// busy so the next cycle can start with them.
func (c *CycleData) DidDetectFacesDuringCycle(faces []DetectedFace) {
	c.facesDuringCycle = append(c.facesDuringCycle, faces...)
}

// FacesDetectedDuringCycle returns faces kept for the next cycle.
func (c *CycleData) FacesDetectedDuringCycle() []DetectedFace {
	return append([]DetectedFace(nil), c.facesDuringCycle...)
}

// DiscardFacesDetectedDuringCycle forgets faces kept for the next cycle.
func (c *CycleData) DiscardFacesDetectedDuringCycle() {
	c.facesDuringCycle = nil
}

// DidIdentifyPersons records identified persons, skipping person ids already
// present, and schedules creation offers for every queued face that was not
// recognized. recognizedFaceIDs names extra faces that matched a person but
// were dropped as duplicates; they are not offered for creation either.
func (c *CycleData) DidIdentifyPersons(persons []IdentifiedPerson, recognizedFaceIDs ...string) {
	recognized := make(map[string]bool, len(persons)+len(recognizedFaceIDs))
	for _, id := range recognizedFaceIDs {
		recognized[id] = true
	}
	for _, p := range persons {
		recognized[p.Face.FaceID] = true
		c.addIdentified(p)
	}

	scheduled := make(map[string]bool, len(c.toCreate))
	for _, e := range c.toCreate {
		scheduled[e.Face.FaceID] = true
	}
	for _, f := range c.facesToIdentify {
		if recognized[f.FaceID] || scheduled[f.FaceID] {
			continue
		}
		scheduled[f.FaceID] = true
		c.toCreate = append(c.toCreate, &PersonToCreate{Face: f, State: CreateScheduled})
	}
}

func (c *CycleData) addIdentified(p IdentifiedPerson) bool {
	for _, existing := range c.identified {
		if existing.PersonID == p.PersonID {
			return false
		}
	}
	c.identified = append(c.identified, p)
	return true
}

// IdentifiedPersons returns the persons identified so far.
func (c *CycleData) IdentifiedPersons() []IdentifiedPerson {
	return append([]IdentifiedPerson(nil), c.identified...)
}

// NextPersonToCreate returns the oldest scheduled creation offer.
func (c *CycleData) NextPersonToCreate() (PersonToCreate, bool) {
	if e := c.nextToCreate(); e != nil {
		return *e, true
	}
	return PersonToCreate{}, false
}

// RemainingPersonsToCreate returns the scheduled creation offers in order.
func (c *CycleData) RemainingPersonsToCreate() []PersonToCreate {
	var out []PersonToCreate
	for _, e := range c.toCreate {
		if e.State == CreateScheduled {
			out = append(out, *e)
		}
	}
	return out
}

// PersonsToCreate returns every creation offer of the cycle.
func (c *CycleData) PersonsToCreate() []PersonToCreate {
	out := make([]PersonToCreate, len(c.toCreate))
	for i, e := range c.toCreate {
		out[i] = *e
	}
	return out
}

func (c *CycleData) nextToCreate() *PersonToCreate {
	for _, e := range c.toCreate {
		if e.State == CreateScheduled {
			return e
		}
	}
	return nil
}

// DidCreatePerson marks the next offer created. The new person is added to
// the identified persons so it is commented on too.
func (c *CycleData) DidCreatePerson(p IdentifiedPerson) error {
	e := c.nextToCreate()
	if e == nil {
		return ErrNoPersonToCreate
	}
	e.State = CreateCreated
	e.CreatedPerson = &p
	c.addIdentified(p)
	return nil
}

// DidDeclineToCreatePerson marks the next offer declined.
func (c *CycleData) DidDeclineToCreatePerson() error {
	return c.finishCreate(CreateDeclined)
}

// DidTimeoutOnCreatePerson marks the next offer timed out.
func (c *CycleData) DidTimeoutOnCreatePerson() error {
	return c.finishCreate(CreateTimeout)
}

func (c *CycleData) finishCreate(state CreateState) error {
	e := c.nextToCreate()
	if e == nil {
		return ErrNoPersonToCreate
	}
	e.State = state
	return nil
}

// ScheduleComments appends planned comments.
func (c *CycleData) ScheduleComments(entries []PersonToCommentOn) {
	for _, e := range entries {
		e := e
		if e.State == "" {
			e.State = CommentScheduled
		}
		c.toComment = append(c.toComment, &e)
	}
}

// NextPersonToCommentOn returns the oldest scheduled comment with its
// position among all comments of the cycle.
func (c *CycleData) NextPersonToCommentOn() (entry PersonToCommentOn, idx, count int, ok bool) {
	for i, e := range c.toComment {
		if e.State == CommentScheduled {
			return *e, i, len(c.toComment), true
		}
	}
	return PersonToCommentOn{}, 0, len(c.toComment), false
}

// PersonsToCommentOn returns every planned comment of the cycle.
func (c *CycleData) PersonsToCommentOn() []PersonToCommentOn {
	out := make([]PersonToCommentOn, len(c.toComment))
	for i, e := range c.toComment {
		out[i] = *e
	}
	return out
}

// DidCommentOnPerson marks the next comment delivered at the given time.
func (c *CycleData) DidCommentOnPerson(at time.Time) error {
	e := c.nextToComment()
	if e == nil {
		return ErrNoPersonToCommentOn
	}
	e.State = CommentDelivered
	e.SpokenOn = at
	return nil
}

// DidSkipCommentForPerson marks the next comment skipped.
func (c *CycleData) DidSkipCommentForPerson() error {
	e := c.nextToComment()
	if e == nil {
		return ErrNoPersonToCommentOn
	}
	e.State = CommentSkipped
	return nil
}

func (c *CycleData) nextToComment() *PersonToCommentOn {
	for _, e := range c.toComment {
		if e.State == CommentScheduled {
			return e
		}
	}
	return nil
}

// AllCommentsSkipped reports whether the cycle planned comments and skipped
// every one of them.
func (c *CycleData) AllCommentsSkipped() bool {
	if len(c.toComment) == 0 {
		return false
	}
	for _, e := range c.toComment {
		if e.State != CommentSkipped {
			return false
		}
	}
	return true
}

// AnyCommentDelivered reports whether at least one comment was spoken.
func (c *CycleData) AnyCommentDelivered() bool {
	for _, e := range c.toComment {
		if e.State == CommentDelivered {
			return true
		}
	}
	return false
}

// AllCreationsRefused reports whether the cycle offered to remember someone
// and every offer was declined or timed out.
func (c *CycleData) AllCreationsRefused() bool {
	if len(c.toCreate) == 0 {
		return false
	}
	for _, e := range c.toCreate {
		if e.State != CreateDeclined && e.State != CreateTimeout {
			return false
		}
	}
	return true
}

// CycleSummary is a read-only view of cycle data for the UI.
type CycleSummary struct {
	ID                 string              `json:"id"`
	StartedAt          time.Time           `json:"startedAt"`
	FacesToIdentify    int                 `json:"facesToIdentify"`
	FacesDuringCycle   int                 `json:"facesDuringCycle"`
	IdentifiedPersons  []IdentifiedPerson  `json:"identifiedPersons"`
	PersonsToCreate    []PersonToCreate    `json:"personsToCreate"`
	PersonsToCommentOn []PersonToCommentOn `json:"personsToCommentOn"`
}

// Summary returns a copy of the cycle state.
func (c *CycleData) Summary() CycleSummary {
	return CycleSummary{
		ID:                 c.ID,
		StartedAt:          c.StartedAt,
		FacesToIdentify:    len(c.facesToIdentify),
		FacesDuringCycle:   len(c.facesDuringCycle),
		IdentifiedPersons:  c.IdentifiedPersons(),
		PersonsToCreate:    c.PersonsToCreate(),
		PersonsToCommentOn: c.PersonsToCommentOn(),
	}
}
