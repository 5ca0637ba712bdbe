package proc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

func newTestManager() *Manager {
	m := NewManager("/opt/obs/bin/obs", 4455, obs.NewLogger("error"))
	m.PollInterval = time.Millisecond
	m.StartupGrace = 0
	m.dialPort = func(port int) error { return nil }
	return m
}

func TestEnsureRunningSkipsLaunchWhenAlive(t *testing.T) {
	m := newTestManager()
	m.runProbe = func(name string, args ...string) (string, error) {
		return "", nil // pgrep success means a process exists
	}
	launched := false
	m.start = func(path string) error { launched = true; return nil }

	require.NoError(t, m.EnsureRunning())
	assert.False(t, launched, "must not relaunch a running OBS")
}

func TestEnsureRunningLaunchesAndPolls(t *testing.T) {
	m := newTestManager()
	probes := 0
	m.runProbe = func(name string, args ...string) (string, error) {
		probes++
		if probes < 4 {
			return "", errors.New("no such process")
		}
		return "", nil
	}
	launched := false
	m.start = func(path string) error { launched = true; return nil }

	require.NoError(t, m.EnsureRunning())
	assert.True(t, launched)
	assert.GreaterOrEqual(t, probes, 4, "must poll until the process appears")
}

func TestEnsureRunningGivesUpAfterPolls(t *testing.T) {
	m := newTestManager()
	m.PollRetries = 3
	m.runProbe = func(name string, args ...string) (string, error) {
		return "", errors.New("no such process")
	}
	m.start = func(path string) error { return nil }

	err := m.EnsureRunning()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not appear")
}

func TestEnsureRunningPropagatesLaunchFailure(t *testing.T) {
	m := newTestManager()
	m.runProbe = func(name string, args ...string) (string, error) {
		return "", errors.New("no such process")
	}
	m.start = func(path string) error { return errors.New("permission denied") }

	err := m.EnsureRunning()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch OBS")
}

func TestPortProbeFailureIsSoft(t *testing.T) {
	m := newTestManager()
	m.runProbe = func(name string, args ...string) (string, error) { return "", nil }
	m.dialPort = func(port int) error { return errors.New("connection refused") }

	assert.NoError(t, m.EnsureRunning(), "unreachable port must not fail the launch")
}
