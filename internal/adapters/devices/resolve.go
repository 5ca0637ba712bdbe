package devices

import (
	"strconv"
	"strings"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

// Label-to-device resolution is an ordered strategy chain; the first strategy
// that produces a match wins:
//
//  1. exact name match (case-insensitive)
//  2. substring match in either direction (case-insensitive)
//  3. trailing numeric suffix in the label used as a 1-based index into the
//     enumerated list ("Camera 3" -> third device)
//  4. first available device
//
// Ambiguity inside a strategy resolves to the first device found.

// ResolveVideoDevice maps a camera label to an enumerated device.
// The bool is false only when the device list is empty.
func ResolveVideoDevice(label string, cams []domain.VideoDevice) (domain.VideoDevice, bool) {
	if len(cams) == 0 {
		return domain.VideoDevice{}, false
	}
	for _, c := range cams {
		if strings.EqualFold(c.Name, label) {
			return c, true
		}
	}
	for _, c := range cams {
		if containsFold(c.Name, label) || containsFold(label, c.Name) {
			return c, true
		}
	}
	if idx, ok := trailingIndex(label); ok && idx >= 1 && idx <= len(cams) {
		return cams[idx-1], true
	}
	return cams[0], true
}

// ResolveAudioDevice maps a microphone label to an enumerated device.
func ResolveAudioDevice(label string, mics []domain.AudioDevice) (domain.AudioDevice, bool) {
	if len(mics) == 0 {
		return domain.AudioDevice{}, false
	}
	for _, m := range mics {
		if strings.EqualFold(m.Name, label) {
			return m, true
		}
	}
	for _, m := range mics {
		if containsFold(m.Name, label) || containsFold(label, m.Name) {
			return m, true
		}
	}
	if idx, ok := trailingIndex(label); ok && idx >= 1 && idx <= len(mics) {
		return mics[idx-1], true
	}
	return mics[0], true
}

// NormalizeAudioDeviceID maps default-ish labels to the "default" identifier
// OBS understands for wasapi_input_capture.
func NormalizeAudioDeviceID(deviceID string) string {
	switch strings.ToLower(deviceID) {
	case "default", "microphone", "built-in microphone":
		return "default"
	}
	return deviceID
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func trailingIndex(label string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
