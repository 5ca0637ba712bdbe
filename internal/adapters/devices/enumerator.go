// Package devices enumerates cameras, microphones, and displays by shelling
// out to OS probe utilities, caching results until an explicit refresh.
package devices

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

const probeTimeout = 10 * time.Second

// placeholderCameraCount matches the largest supported multi-cam preset so an
// unprobeable machine still gets a usable device list.
const placeholderCameraCount = 7

// Enumerator resolves human device labels to the opaque identifiers OBS
// expects. Lists are computed once and replaced wholesale on Refresh.
type Enumerator struct {
	log zerolog.Logger

	// runProbe is swapped in tests to avoid spawning real processes.
	runProbe func(name string, args ...string) (stdout, stderr string, err error)

	mu       sync.Mutex
	cameras  []domain.VideoDevice
	mics     []domain.AudioDevice
	displays []domain.Display
}

func NewEnumerator(logger *zerolog.Logger) *Enumerator {
	return &Enumerator{
		log:      logger.With().Str("component", "devices").Logger(),
		runProbe: runCommand,
	}
}

func runCommand(name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return "", "", err
	}
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		return out.String(), errBuf.String(), err
	case <-time.After(probeTimeout):
		_ = cmd.Process.Kill()
		<-done
		return out.String(), errBuf.String(), fmt.Errorf("%s timed out", name)
	}
}

// Refresh drops every cached list; the next accessor re-enumerates.
func (e *Enumerator) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cameras = nil
	e.mics = nil
	e.displays = nil
}

// Prime enumerates all three device classes concurrently so the first
// recording start does not pay three sequential probe timeouts.
func (e *Enumerator) Prime() {
	var g errgroup.Group
	g.Go(func() error { e.Cameras(); return nil })
	g.Go(func() error { e.Microphones(); return nil })
	g.Go(func() error { e.Displays(); return nil })
	_ = g.Wait()
}

// Accessors probe outside the lock so Prime's goroutines actually overlap;
// a losing racer just discards its probe result.

func (e *Enumerator) Cameras() []domain.VideoDevice {
	e.mu.Lock()
	cached := e.cameras
	e.mu.Unlock()
	if cached != nil {
		return cached
	}
	found := e.enumerateCameras()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cameras == nil {
		e.cameras = found
		e.log.Info().Int("count", len(found)).Msg("enumerated cameras")
	}
	return e.cameras
}

func (e *Enumerator) Microphones() []domain.AudioDevice {
	e.mu.Lock()
	cached := e.mics
	e.mu.Unlock()
	if cached != nil {
		return cached
	}
	found := e.enumerateMicrophones()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mics == nil {
		e.mics = found
		e.log.Info().Int("count", len(found)).Msg("enumerated microphones")
	}
	return e.mics
}

func (e *Enumerator) Displays() []domain.Display {
	e.mu.Lock()
	cached := e.displays
	e.mu.Unlock()
	if cached != nil {
		return cached
	}
	found := e.enumerateDisplays()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.displays == nil {
		e.displays = found
		e.log.Info().Int("count", len(found)).Msg("enumerated displays")
	}
	return e.displays
}

// FindCamera resolves a camera label via the strategy chain.
func (e *Enumerator) FindCamera(name string) (domain.VideoDevice, bool) {
	return ResolveVideoDevice(name, e.Cameras())
}

// FindMicrophone resolves a microphone label via the strategy chain. The
// returned device id is normalized so default-ish devices bind as "default".
func (e *Enumerator) FindMicrophone(name string) (domain.AudioDevice, bool) {
	d, ok := ResolveAudioDevice(name, e.Microphones())
	if ok {
		d.DeviceID = NormalizeAudioDeviceID(d.DeviceID)
	}
	return d, ok
}

func (e *Enumerator) enumerateCameras() []domain.VideoDevice {
	names := e.probeFFmpegSection("DirectShow video devices")
	if len(names) == 0 && runtime.GOOS == "windows" {
		names = e.probePowershell(
			`Get-CimInstance Win32_PnPEntity | Where-Object { $_.Caption -match "camera|webcam|video" } | Select-Object -ExpandProperty Caption`)
	}
	if len(names) == 0 {
		e.log.Warn().Msg("no cameras detected, using placeholders")
		for i := 1; i <= placeholderCameraCount; i++ {
			names = append(names, fmt.Sprintf("Camera %d", i))
		}
	}
	out := make([]domain.VideoDevice, 0, len(names))
	for i, n := range names {
		out = append(out, domain.VideoDevice{Name: n, DeviceID: n, Index: i})
	}
	return out
}

func (e *Enumerator) enumerateMicrophones() []domain.AudioDevice {
	names := e.probeFFmpegSection("DirectShow audio devices")
	if len(names) == 0 && runtime.GOOS == "windows" {
		names = e.probePowershell(
			`Get-CimInstance Win32_SoundDevice | Select-Object -ExpandProperty Caption`)
	}
	if len(names) == 0 {
		e.log.Warn().Msg("no audio inputs detected, using default device")
		return []domain.AudioDevice{{Name: "Default Microphone", DeviceID: "default", Index: 0}}
	}
	out := make([]domain.AudioDevice, 0, len(names))
	for i, n := range names {
		out = append(out, domain.AudioDevice{Name: n, DeviceID: n, Index: i})
	}
	return out
}

func (e *Enumerator) enumerateDisplays() []domain.Display {
	var displays []domain.Display
	if runtime.GOOS == "windows" {
		stdout := e.probePowershellRaw(
			`Get-CimInstance Win32_VideoController | Select-Object -ExpandProperty CurrentHorizontalResolution,CurrentVerticalResolution`)
		displays = parseDisplayResolutions(stdout)
	}
	if len(displays) == 0 {
		displays = []domain.Display{{Name: "Display 1", Index: 0, Width: 1920, Height: 1080, Primary: true}}
	}
	return displays
}

// probeFFmpegSection runs the DirectShow device listing and extracts quoted
// device names from the named stderr section.
func (e *Enumerator) probeFFmpegSection(section string) []string {
	_, stderr, err := e.runProbe("ffmpeg", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	// ffmpeg exits non-zero on the dummy input; the listing is still on stderr
	if stderr == "" && err != nil {
		e.log.Debug().Err(err).Msg("ffmpeg probe failed")
		return nil
	}
	return ParseDShowSection(stderr, section)
}

func (e *Enumerator) probePowershell(script string) []string {
	stdout := e.probePowershellRaw(script)
	var names []string
	for _, line := range strings.Split(stdout, "\n") {
		if n := strings.TrimSpace(line); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (e *Enumerator) probePowershellRaw(script string) string {
	stdout, _, err := e.runProbe("powershell", "-Command", script)
	if err != nil {
		e.log.Debug().Err(err).Msg("powershell probe failed")
		return ""
	}
	return stdout
}

// ParseDShowSection extracts quoted device names from one section of
// ffmpeg's -list_devices stderr output. Alternative-name lines (starting
// with "@device") are skipped.
func ParseDShowSection(stderr, section string) []string {
	var names []string
	inSection := false
	for _, line := range strings.Split(stderr, "\n") {
		switch {
		case strings.Contains(line, section):
			inSection = true
			continue
		case strings.Contains(line, "DirectShow"):
			// a different section header ends ours
			inSection = false
			continue
		}
		if !inSection || !strings.Contains(line, `"`) {
			continue
		}
		start := strings.Index(line, `"`) + 1
		end := strings.LastIndex(line, `"`)
		if start >= end {
			continue
		}
		name := line[start:end]
		if name == "" || strings.HasPrefix(name, "@device") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func parseDisplayResolutions(stdout string) []domain.Display {
	var displays []domain.Display
	var dims []int
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(line, "%d", &n); err == nil {
			dims = append(dims, n)
		}
	}
	for i := 0; i+1 < len(dims); i += 2 {
		idx := i / 2
		displays = append(displays, domain.Display{
			Name:    fmt.Sprintf("Display %d", idx+1),
			Index:   idx,
			Width:   dims[i],
			Height:  dims[i+1],
			Primary: idx == 0,
		})
	}
	return displays
}
