package domain

type TransitionAction string

const (
	ActionSubmit          TransitionAction = "submit"
	ActionVerify          TransitionAction = "verify"
	ActionReject          TransitionAction = "reject"
	ActionAssignBatch     TransitionAction = "assign-batch"
	ActionSendToCenter    TransitionAction = "send-to-center"
	ActionConfirmDispatch TransitionAction = "confirm-dispatch"
	ActionComplete        TransitionAction = "complete"
)

type Transition struct {
	From ParticipantStatus
	To   ParticipantStatus
}

// Transitions is the only way a participant status moves.
var Transitions = map[TransitionAction]Transition{
	ActionSubmit:          {ParticipantStatusDraft, ParticipantStatusSubmitted},
	ActionVerify:          {ParticipantStatusSubmitted, ParticipantStatusVerified},
	ActionReject:          {ParticipantStatusSubmitted, ParticipantStatusRejected},
	ActionAssignBatch:     {ParticipantStatusVerified, ParticipantStatusWaitingQuota},
	ActionSendToCenter:    {ParticipantStatusWaitingQuota, ParticipantStatusSentToCenter},
	ActionConfirmDispatch: {ParticipantStatusSentToCenter, ParticipantStatusWaitingDispatch},
	ActionComplete:        {ParticipantStatusWaitingDispatch, ParticipantStatusCompleted},
}

// Apply moves p along the transition for action, or returns a *StateError
// leaving p untouched.
func (p *Participant) Apply(action TransitionAction) error {
	t, ok := Transitions[action]
	if !ok {
		return NewValidationError("unknown transition: " + string(action))
	}
	if p.Status != t.From {
		return &StateError{Action: string(action), Current: string(p.Status), From: string(t.From), To: string(t.To)}
	}
	p.Status = t.To
	p.SyncProgress()
	return nil
}
