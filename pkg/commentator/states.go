package commentator

import "github.com/teslashibe/go-commentator/pkg/fsm"

// State is a Commentator state.
type State string

const (
	StateIdle                State = "idle"
	StateDetectPresence      State = "detectPresence"
	StateDetectFaces         State = "detectFaces"
	StateIdentifyFaces       State = "identifyFaces"
	StateWaitForThrottling   State = "waitForThrottling"
	StateProcessAnyNewFaces  State = "processAnyNewFaces"
	StateAskToCreatePerson   State = "askToCreatePerson"
	StateCreatePerson        State = "createPerson"
	StateCommentOnNextPerson State = "commentOnNextPerson"
)

// Transition names a Commentator state change.
type Transition string

const (
	TransitionStop                         Transition = "stop"
	TransitionStart                        Transition = "start"
	TransitionPresenceDetected             Transition = "presenceDetected"
	TransitionNoPresenceDetected           Transition = "noPresenceDetected"
	TransitionDetectedFaces                Transition = "detectedFaces"
	TransitionDetectFacesThrottled         Transition = "detectFacesThrottled"
	TransitionIdentifyFacesCompleted       Transition = "identifyFaces_Completed"
	TransitionIdentifyFacesThrottled       Transition = "identifyFaces_Throttled"
	TransitionIdentifyFacesFailed          Transition = "identifyFaces_Failed"
	TransitionWaitForThrottlingCompleted   Transition = "waitForThrottling_Completed"
	TransitionProcessAnyNewFacesNext       Transition = "processAnyNewFaces_Next"
	TransitionProcessAnyNewFacesCompleted  Transition = "processAnyNewFaces_Completed"
	TransitionAskToCreatePersonAccepted    Transition = "askToCreatePerson_Accepted"
	TransitionAskToCreatePersonDeclined    Transition = "askToCreatePerson_Declined"
	TransitionAskToCreatePersonTimeout     Transition = "askToCreatePerson_Timeout"
	TransitionCreatePersonOK               Transition = "createPerson_Ok"
	TransitionCreatePersonCanceled         Transition = "createPerson_Canceled"
	TransitionCommentOnNextPersonTooEarly  Transition = "commentOnNextPerson_TooEarly"
	TransitionCommentOnNextPersonDelivered Transition = "commentOnNextPerson_Delivered"
	TransitionCommentOnNextPersonNoMore    Transition = "commentOnNextPerson_NoMoreComments"
)

// TransitionEvent is dispatched after every accepted state change.
type TransitionEvent = fsm.Transition[State, Transition]

// machineConfig builds the transition table. Hooks come from c.
func (c *Commentator) machineConfig() fsm.Config[State, Transition] {
	return fsm.Config[State, Transition]{
		Any: fsm.StateConfig[State, Transition]{
			Allow: map[Transition]State{
				TransitionStop: StateIdle,
			},
			Ignore: []Transition{
				TransitionPresenceDetected,
				TransitionNoPresenceDetected,
			},
		},
		States: map[State]fsm.StateConfig[State, Transition]{
			StateIdle: {
				OnEnter: c.enterIdle,
				Allow: map[Transition]State{
					TransitionStart: StateDetectPresence,
				},
			},
			StateDetectPresence: {
				OnEnter: c.enterDetectPresence,
				Allow: map[Transition]State{
					TransitionPresenceDetected: StateDetectFaces,
				},
			},
			StateDetectFaces: {
				OnEnter: c.enterDetectFaces,
				Allow: map[Transition]State{
					TransitionNoPresenceDetected:   StateDetectPresence,
					TransitionDetectedFaces:        StateIdentifyFaces,
					TransitionDetectFacesThrottled: StateWaitForThrottling,
				},
			},
			StateIdentifyFaces: {
				OnEnter: c.enterIdentifyFaces,
				Allow: map[Transition]State{
					TransitionNoPresenceDetected:     StateDetectPresence,
					TransitionIdentifyFacesCompleted: StateProcessAnyNewFaces,
					TransitionIdentifyFacesThrottled: StateWaitForThrottling,
					TransitionIdentifyFacesFailed:    StateDetectFaces,
				},
			},
			StateWaitForThrottling: {
				OnEnter: c.enterWaitForThrottling,
				Allow: map[Transition]State{
					TransitionWaitForThrottlingCompleted: StateDetectFaces,
				},
			},
			StateProcessAnyNewFaces: {
				OnEnter: c.enterProcessAnyNewFaces,
				Allow: map[Transition]State{
					TransitionProcessAnyNewFacesNext:      StateAskToCreatePerson,
					TransitionProcessAnyNewFacesCompleted: StateCommentOnNextPerson,
				},
			},
			StateAskToCreatePerson: {
				OnEnter: c.enterAskToCreatePerson,
				OnExit:  c.exitAskToCreatePerson,
				Allow: map[Transition]State{
					TransitionAskToCreatePersonAccepted: StateCreatePerson,
					TransitionAskToCreatePersonDeclined: StateProcessAnyNewFaces,
					TransitionAskToCreatePersonTimeout:  StateProcessAnyNewFaces,
				},
			},
			StateCreatePerson: {
				OnEnter: c.enterCreatePerson,
				Allow: map[Transition]State{
					TransitionCreatePersonOK:       StateProcessAnyNewFaces,
					TransitionCreatePersonCanceled: StateProcessAnyNewFaces,
				},
			},
			StateCommentOnNextPerson: {
				OnEnter: c.enterCommentOnNextPerson,
				Allow: map[Transition]State{
					TransitionCommentOnNextPersonTooEarly:  StateCommentOnNextPerson,
					TransitionCommentOnNextPersonDelivered: StateCommentOnNextPerson,
					TransitionCommentOnNextPersonNoMore:    StateDetectFaces,
				},
			},
		},
		HistoryLimit: c.cfg.HistoryLimit,
		Logger:       c.logger,
	}
}
