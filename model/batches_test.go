package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvanceTo(t *testing.T) {
	assert.True(t, StateMinted.CanAdvanceTo(StateInTransit))
	assert.True(t, StateInTransit.CanAdvanceTo(StateAtClinic))
	assert.True(t, StateAtClinic.CanAdvanceTo(StateAdministered))

	assert.False(t, StateMinted.CanAdvanceTo(StateAtClinic), "no skipping")
	assert.False(t, StateAtClinic.CanAdvanceTo(StateInTransit), "no moving back")
	assert.False(t, StateAdministered.CanAdvanceTo(StateMinted))
	assert.False(t, StateMinted.CanAdvanceTo(StateFlagged), "derived states are never stored")
	assert.False(t, StateExpired.CanAdvanceTo(StateAdministered))
}

func TestEffectiveState(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	before := expiry.Add(-time.Hour)
	after := expiry.Add(time.Second)

	tests := []struct {
		name    string
		record  BatchRecord
		now     time.Time
		want    BatchState
		expired bool
	}{
		{"stored state while valid", BatchRecord{State: StateInTransit, Expiry: expiry}, before, StateInTransit, false},
		{"expiry instant is still valid", BatchRecord{State: StateAtClinic, Expiry: expiry}, expiry, StateAtClinic, false},
		{"expired", BatchRecord{State: StateMinted, Expiry: expiry}, after, StateExpired, true},
		{"flag outranks expiry", BatchRecord{State: StateMinted, Expiry: expiry, Flagged: true}, after, StateFlagged, true},
		{"flagged while valid", BatchRecord{State: StateAtClinic, Expiry: expiry, Flagged: true}, before, StateFlagged, false},
		{"administered is final", BatchRecord{State: StateAdministered, Expiry: expiry}, after, StateAdministered, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.EffectiveState(tt.now))
			assert.Equal(t, tt.expired, tt.record.IsExpiredAt(tt.now))
		})
	}
}

func TestHasFlagReason(t *testing.T) {
	b := BatchRecord{FlagReasons: []FlagReason{FlagExcursion}}
	assert.True(t, b.HasFlagReason(FlagExcursion))
	assert.False(t, b.HasFlagReason(FlagRecall))
}
