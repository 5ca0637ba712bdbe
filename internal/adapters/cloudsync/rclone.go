// Package cloudsync pushes finished recordings to a remote via rclone.
// Sync is a background nicety: failures are logged and reported, never fatal.
package cloudsync

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

// Rclone wraps the rclone command line tool.
type Rclone struct {
	log zerolog.Logger

	lookPath func(file string) (string, error)
	run      func(name string, args ...string) ([]byte, error)
}

func NewRclone(logger *zerolog.Logger) *Rclone {
	return &Rclone{
		log:      logger.With().Str("component", "cloudsync").Logger(),
		lookPath: exec.LookPath,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
	}
}

// Available reports whether the rclone binary is on PATH.
func (r *Rclone) Available() bool {
	_, err := r.lookPath("rclone")
	return err == nil
}

// RemoteConfigured reports whether the named remote exists in the rclone
// configuration.
func (r *Rclone) RemoteConfigured(remote string) bool {
	out, err := r.run("rclone", "listremotes")
	if err != nil {
		r.log.Debug().Err(err).Msg("rclone listremotes failed")
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == remote+":" {
			return true
		}
	}
	return false
}

// Sync copies localPath to the configured remote. When cfg.SyncExportsOnly is
// set only the exports subtree is pushed. Returns a human-readable status.
func (r *Rclone) Sync(localPath string, cfg domain.SyncConfig) (string, error) {
	if !r.Available() {
		return "", fmt.Errorf("rclone is not installed (https://rclone.org/install/)")
	}
	if !r.RemoteConfigured(cfg.RcloneRemote) {
		return "", fmt.Errorf("rclone remote %q is not configured (run: rclone config)", cfg.RcloneRemote)
	}

	src := localPath
	dst := cfg.RcloneRemote + ":" + cfg.RemotePath
	if cfg.SyncExportsOnly {
		src = filepath.Join(localPath, "exports")
		dst = dst + "/" + filepath.Base(localPath) + "/exports"
	}

	args := []string{"copy", src, dst, "--progress"}
	for _, pattern := range cfg.ExcludePatterns {
		args = append(args, "--exclude", pattern)
	}

	r.log.Info().Str("src", src).Str("dst", dst).Msg("syncing to remote")
	out, err := r.run("rclone", args...)
	if err != nil {
		r.log.Error().Err(err).Str("output", strings.TrimSpace(string(out))).Msg("sync failed")
		return "", fmt.Errorf("rclone copy failed: %w", err)
	}
	r.log.Info().Msg("sync complete")
	return fmt.Sprintf("synced %s to %s", src, dst), nil
}
