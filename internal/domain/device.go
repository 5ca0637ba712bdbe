package domain

// VideoDevice is a camera as seen by the capture backend. DeviceID is the
// opaque identifier OBS expects in dshow_input settings.
type VideoDevice struct {
	Name     string
	DeviceID string
	Index    int
}

// AudioDevice is a microphone as seen by the capture backend.
type AudioDevice struct {
	Name     string
	DeviceID string
	Index    int
}

// Display is a monitor addressed by zero-based index in monitor_capture.
type Display struct {
	Name    string
	Index   int
	Width   int
	Height  int
	Primary bool
}
