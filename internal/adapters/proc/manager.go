// Package proc detects and launches the OBS process, then waits for its
// websocket server port to come up.
package proc

import (
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Manager launches OBS detached and polls until the process and its
// websocket port are reachable.
type Manager struct {
	log zerolog.Logger

	OBSPath      string
	Port         int
	PollRetries  int
	PollInterval time.Duration
	StartupGrace time.Duration

	// swapped in tests to avoid spawning real processes
	runProbe func(name string, args ...string) (string, error)
	start    func(path string) error
	dialPort func(port int) error
}

func NewManager(obsPath string, port int, logger *zerolog.Logger) *Manager {
	return &Manager{
		log:          logger.With().Str("component", "proc").Logger(),
		OBSPath:      obsPath,
		Port:         port,
		PollRetries:  20,
		PollInterval: time.Second,
		StartupGrace: 5 * time.Second,
		runProbe:     runProbe,
		start:        startDetached,
		dialPort:     dialPort,
	}
}

func runProbe(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return string(out), err
}

// startDetached launches OBS and releases the process so it outlives us.
// OBS requires its working directory to be the binary's folder.
func startDetached(path string) error {
	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func dialPort(port int) error {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		return err
	}
	return conn.Close()
}

// IsRunning reports whether an OBS process exists.
func (m *Manager) IsRunning() bool {
	switch runtime.GOOS {
	case "windows":
		out, err := m.runProbe("tasklist", "/FI", "IMAGENAME eq obs64.exe", "/NH")
		if err != nil {
			m.log.Debug().Err(err).Msg("tasklist probe failed")
			return false
		}
		return strings.Contains(strings.ToLower(out), "obs64.exe")
	default:
		_, err := m.runProbe("pgrep", "-x", "obs")
		return err == nil
	}
}

// EnsureRunning launches OBS if no process exists, waits until one appears,
// then probes the websocket port. A port that never opens is a soft warning,
// not a failure: the connect loop retries anyway.
func (m *Manager) EnsureRunning() error {
	if m.IsRunning() {
		m.log.Info().Msg("OBS is already running")
		m.probePort()
		return nil
	}

	m.log.Info().Str("path", m.OBSPath).Msg("launching OBS")
	if err := m.start(m.OBSPath); err != nil {
		return fmt.Errorf("launch OBS at %s: %w", m.OBSPath, err)
	}

	for i := 0; i < m.PollRetries; i++ {
		time.Sleep(m.PollInterval)
		if m.IsRunning() {
			m.log.Info().Int("polls", i+1).Msg("OBS process detected")
			// grace period for the websocket server to initialize
			time.Sleep(m.StartupGrace)
			m.probePort()
			return nil
		}
	}
	return fmt.Errorf("OBS did not appear within %d polls", m.PollRetries)
}

func (m *Manager) probePort() {
	if err := m.dialPort(m.Port); err != nil {
		m.log.Warn().Err(err).Int("port", m.Port).
			Msg("websocket port not reachable yet, will rely on connect retries")
		return
	}
	m.log.Debug().Int("port", m.Port).Msg("websocket port reachable")
}
