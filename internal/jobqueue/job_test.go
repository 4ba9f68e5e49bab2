package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLaneValid(t *testing.T) {
	assert.True(t, LaneImport.Valid())
	assert.True(t, LaneExport.Valid())
	assert.False(t, Lane("cleanup").Valid())
	assert.False(t, Lane("").Valid())
}

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
	}{
		{StateWaiting, false},
		{StateActive, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}

func TestPolicyDelay(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BackoffBase: 5 * time.Second}

	assert.Equal(t, 5*time.Second, policy.Delay(1))
	assert.Equal(t, 10*time.Second, policy.Delay(2))
	assert.Equal(t, 20*time.Second, policy.Delay(3))

	// Out-of-range attempts clamp to the first delay.
	assert.Equal(t, 5*time.Second, policy.Delay(0))
	assert.Equal(t, 5*time.Second, policy.Delay(-1))
}

func TestDefaultLanePolicies(t *testing.T) {
	assert.Equal(t, 3, ImportPolicy.MaxAttempts)
	assert.Equal(t, 5*time.Second, ImportPolicy.BackoffBase)
	assert.Equal(t, 2, ExportPolicy.MaxAttempts)
	assert.Equal(t, 3*time.Second, ExportPolicy.BackoffBase)
}

func TestJobPolicyRoundTrip(t *testing.T) {
	job := &Job{MaxAttempts: 3, BackoffBaseMS: 5000}
	policy := job.Policy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 5*time.Second, policy.BackoffBase)
}
