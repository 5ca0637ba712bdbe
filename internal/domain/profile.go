package domain

import (
	"fmt"
	"strings"
)

// DefaultSceneName is shared by every profile so recording filters and
// verification always address the same scene.
const DefaultSceneName = "Tutorial Recording"

// ProfileConfiguration describes the desired device topology for a named
// OBS profile. It is the persisted source of truth; the configuration engine
// reconciles OBS toward it.
type ProfileConfiguration struct {
	ProfileName  string   `json:"profile_name"`
	Displays     []string `json:"displays"`
	Cameras      []string `json:"cameras"`
	AudioInputs  []string `json:"audio_inputs"`
	IsConfigured bool     `json:"is_configured"`
}

// DefaultProfileConfiguration synthesizes a safe configuration for profiles
// that were never saved. Names matching the multi-camera patterns get the
// 7-way preset; everything else gets a single display/camera/mic.
func DefaultProfileConfiguration(profileName string) ProfileConfiguration {
	if isMultiCameraName(profileName) {
		cfg := ProfileConfiguration{
			ProfileName: profileName,
			Displays:    []string{"Display 1"},
		}
		for i := 1; i <= 7; i++ {
			cfg.Cameras = append(cfg.Cameras, fmt.Sprintf("Camera %d", i))
			cfg.AudioInputs = append(cfg.AudioInputs, fmt.Sprintf("Mic %d", i))
		}
		return cfg
	}
	return ProfileConfiguration{
		ProfileName: profileName,
		Displays:    []string{"Display 1"},
		Cameras:     []string{"Camera 1"},
		AudioInputs: []string{"Microphone"},
	}
}

func isMultiCameraName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "7cammic") ||
		strings.Contains(lower, "7cam") ||
		strings.Contains(lower, "7-cam") ||
		strings.Contains(lower, "multi") ||
		strings.HasSuffix(name, "-7")
}

// ExpectedSources is the set of source names the scene must contain for this
// configuration: one "Display N" per display index plus every camera and
// microphone label.
func (c ProfileConfiguration) ExpectedSources() []string {
	out := make([]string, 0, len(c.Displays)+len(c.Cameras)+len(c.AudioInputs))
	for i := range c.Displays {
		out = append(out, fmt.Sprintf("Display %d", i+1))
	}
	out = append(out, c.Cameras...)
	out = append(out, c.AudioInputs...)
	return out
}

// IsAudioSourceName reports whether a scene source name belongs to the
// audio-only partition (microphone-pattern names).
func IsAudioSourceName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "mic") || strings.Contains(lower, "microphone")
}
