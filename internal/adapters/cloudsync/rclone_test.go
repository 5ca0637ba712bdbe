package cloudsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

func newTestRclone() *Rclone {
	r := NewRclone(obs.NewLogger("error"))
	r.lookPath = func(string) (string, error) { return "/usr/bin/rclone", nil }
	return r
}

func TestSyncFailsWithoutBinary(t *testing.T) {
	r := newTestRclone()
	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := r.Sync("/recordings/demo", domain.DefaultSyncConfig("/recordings"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestSyncFailsWithoutRemote(t *testing.T) {
	r := newTestRclone()
	r.run = func(name string, args ...string) ([]byte, error) {
		return []byte("other-remote:\n"), nil
	}

	_, err := r.Sync("/recordings/demo", domain.DefaultSyncConfig("/recordings"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSyncCopiesWholeProject(t *testing.T) {
	r := newTestRclone()
	var copyArgs []string
	r.run = func(name string, args ...string) ([]byte, error) {
		if args[0] == "listremotes" {
			return []byte("tutorial-recordings:\n"), nil
		}
		copyArgs = args
		return nil, nil
	}

	cfg := domain.DefaultSyncConfig("/recordings")
	msg, err := r.Sync("/recordings/2026-08-26_demo", cfg)
	require.NoError(t, err)
	assert.Contains(t, msg, "synced")
	assert.Equal(t, []string{
		"copy", "/recordings/2026-08-26_demo", "tutorial-recordings:Tutorial Recordings",
		"--progress",
		"--exclude", "*.tmp",
		"--exclude", "*.part",
	}, copyArgs)
}

func TestSyncExportsOnlyNarrowsSource(t *testing.T) {
	r := newTestRclone()
	var copyArgs []string
	r.run = func(name string, args ...string) ([]byte, error) {
		if args[0] == "listremotes" {
			return []byte("tutorial-recordings:\n"), nil
		}
		copyArgs = args
		return nil, nil
	}

	cfg := domain.DefaultSyncConfig("/recordings")
	cfg.SyncExportsOnly = true
	_, err := r.Sync("/recordings/2026-08-26_demo", cfg)
	require.NoError(t, err)
	assert.Equal(t, "/recordings/2026-08-26_demo/exports", copyArgs[1])
	assert.Equal(t, "tutorial-recordings:Tutorial Recordings/2026-08-26_demo/exports", copyArgs[2])
}

func TestSyncReportsCopyFailure(t *testing.T) {
	r := newTestRclone()
	r.run = func(name string, args ...string) ([]byte, error) {
		if args[0] == "listremotes" {
			return []byte("tutorial-recordings:\n"), nil
		}
		return []byte("quota exceeded"), errors.New("exit status 7")
	}

	_, err := r.Sync("/recordings/demo", domain.DefaultSyncConfig("/recordings"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rclone copy failed")
}
