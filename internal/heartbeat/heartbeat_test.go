package heartbeat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHealthy(t *testing.T) {
	req := NewRequest(100, 5)
	resp := NewResponse(100, 5, 2)
	assert.Equal(t, HealthyHeartbeat, Classify(req, resp, nil))
}

func TestClassifyInvalidTimestamp(t *testing.T) {
	req := NewRequest(100, 5)
	resp := NewResponse(101, 5, 2)
	assert.Equal(t, InvalidTimestamp, Classify(req, resp, nil))
}

func TestClassifyInvalidEpoch(t *testing.T) {
	req := NewRequest(100, 5)
	resp := NewResponse(100, 6, 2)
	assert.Equal(t, InvalidEpoch, Classify(req, resp, nil))
}

func TestClassifyInvalidCiphertext(t *testing.T) {
	req := NewRequest(100, 5)
	resp := Response{}
	assert.Equal(t, InvalidCiphertext, Classify(req, resp, errors.New("decrypt failed")))
}

func TestMonitorResetsOnHealthy(t *testing.T) {
	m := NewMonitor()
	m.Observe(InvalidTimestamp)
	m.Observe(InvalidTimestamp)
	assert.False(t, m.Observe(HealthyHeartbeat))
	assert.Equal(t, 0, m.ConsecutiveNonHealthy())
}

// TestMonitorAdvisesAtFourConsecutive matches spec.md section 4.6's
// "if >= 4, advise re-pairing" rule.
func TestMonitorAdvisesAtFourConsecutive(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 3; i++ {
		assert.False(t, m.Observe(InvalidTimestamp))
	}
	assert.True(t, m.Observe(InvalidTimestamp))
}

func TestMonitorInvalidCiphertextForcesAdviceImmediately(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.Observe(InvalidCiphertext))
}
