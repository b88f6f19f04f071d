package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTable(t *testing.T) {
	cases := []struct {
		status  ParticipantStatus
		percent int
		step    int
	}{
		{ParticipantStatusDraft, 5, 1},
		{ParticipantStatusSubmitted, 20, 2},
		{ParticipantStatusVerified, 40, 3},
		{ParticipantStatusWaitingQuota, 60, 4},
		{ParticipantStatusSentToCenter, 75, 5},
		{ParticipantStatusWaitingDispatch, 90, 6},
		{ParticipantStatusCompleted, 100, 6},
		{ParticipantStatusRejected, 0, 1},
	}
	for _, c := range cases {
		t.Run(string(c.status), func(t *testing.T) {
			assert.Equal(t, c.percent, ProgressFor(c.status))
			assert.Equal(t, c.step, StepFor(c.status))
		})
	}
	assert.Len(t, cases, len(AllParticipantStatuses))
}

func TestApply(t *testing.T) {
	t.Run("Verify from submitted", func(t *testing.T) {
		p := &Participant{Status: ParticipantStatusSubmitted}
		p.SyncProgress()

		err := p.Apply(ActionVerify)

		assert.NoError(t, err)
		assert.Equal(t, ParticipantStatusVerified, p.Status)
		assert.Equal(t, 40, p.ProgressPercentage)
		assert.Equal(t, 3, p.CurrentStep)
	})

	t.Run("Verify from draft leaves participant untouched", func(t *testing.T) {
		p := &Participant{Status: ParticipantStatusDraft}
		p.SyncProgress()
		before := *p

		err := p.Apply(ActionVerify)

		var stateErr *StateError
		assert.ErrorAs(t, err, &stateErr)
		assert.Equal(t, "submitted", stateErr.From)
		assert.Equal(t, "verified", stateErr.To)
		assert.Contains(t, err.Error(), `"submitted"`)
		assert.Equal(t, before, *p)
	})

	t.Run("Every action requires its predecessor", func(t *testing.T) {
		for action, tr := range Transitions {
			for _, s := range AllParticipantStatuses {
				p := &Participant{Status: s}
				err := p.Apply(action)
				if s == tr.From {
					assert.NoError(t, err, action)
					assert.Equal(t, tr.To, p.Status)
				} else {
					assert.Error(t, err, action)
					assert.Equal(t, s, p.Status)
				}
			}
		}
	})

	t.Run("Unknown action", func(t *testing.T) {
		p := &Participant{Status: ParticipantStatusDraft}
		var vErr *ValidationError
		assert.ErrorAs(t, p.Apply("teleport"), &vErr)
	})
}

func TestBelongsTo(t *testing.T) {
	a, b := int32(1), int32(2)
	p := &Participant{AgencyID: &a}
	assert.True(t, p.BelongsTo(&a))
	assert.False(t, p.BelongsTo(&b))
	assert.False(t, p.BelongsTo(nil))
	assert.False(t, (&Participant{}).BelongsTo(&a))
}
