package usecase

import (
	"time"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

// OBSClient is the correlated request/response surface of the control-plane
// transport. Protocol failures come back as unsuccessful Response values.
type OBSClient interface {
	Connected() bool
	Connect(maxRetries int, retryDelay time.Duration) bool
	Disconnect()
	Send(requestType string, data map[string]any) domain.Response
	SendTimeout(requestType string, data map[string]any, timeout time.Duration) domain.Response
}

// DeviceEnumerator resolves human device labels to the opaque identifiers the
// control plane binds sources to.
type DeviceEnumerator interface {
	Cameras() []domain.VideoDevice
	Microphones() []domain.AudioDevice
	Displays() []domain.Display
	FindCamera(name string) (domain.VideoDevice, bool)
	FindMicrophone(name string) (domain.AudioDevice, bool)
	Refresh()
}

// ProfileStore is the persisted configuration surface.
type ProfileStore interface {
	Profile(name string) (domain.ProfileConfiguration, bool)
	ProfileNames() []string
	SaveProfile(cfg domain.ProfileConfiguration) error
	SyncConfig() domain.SyncConfig
	TranscriptionConfig() domain.TranscriptionConfig
}

// ProcessManager detects and launches the OBS process.
type ProcessManager interface {
	IsRunning() bool
	EnsureRunning() error
}

// Transcriber produces transcripts of recorded videos. Best-effort.
type Transcriber interface {
	Available() bool
	Transcribe(videoPath string, cfg domain.TranscriptionConfig, progress func(string)) domain.TranscriptionResult
}

// Syncer pushes a finished project tree to a remote. Best-effort.
type Syncer interface {
	Available() bool
	Sync(localPath string, cfg domain.SyncConfig) (string, error)
}
