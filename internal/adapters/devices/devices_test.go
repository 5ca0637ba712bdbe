package devices

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

const ffmpegListing = `[dshow @ 000001] DirectShow video devices (some may be both video and audio devices)
[dshow @ 000001]  "Logitech BRIO"
[dshow @ 000001]     Alternative name "@device_pnp_\\?\usb#vid_046d"
[dshow @ 000001]  "OBS Virtual Camera"
[dshow @ 000001] DirectShow audio devices
[dshow @ 000001]  "Microphone (Yeti Stereo Microphone)"
[dshow @ 000001]     Alternative name "@device_cm_{33D9A762}"
[dshow @ 000001]  "Line In (Scarlett 2i2)"
dummy: Immediate exit requested
`

func TestParseDShowSections(t *testing.T) {
	video := ParseDShowSection(ffmpegListing, "DirectShow video devices")
	assert.Equal(t, []string{"Logitech BRIO", "OBS Virtual Camera"}, video)

	audio := ParseDShowSection(ffmpegListing, "DirectShow audio devices")
	assert.Equal(t, []string{"Microphone (Yeti Stereo Microphone)", "Line In (Scarlett 2i2)"}, audio)
}

func TestEnumeratorCachesUntilRefresh(t *testing.T) {
	probes := 0
	e := NewEnumerator(obs.NewLogger("error"))
	e.runProbe = func(name string, args ...string) (string, string, error) {
		probes++
		return "", ffmpegListing, errors.New("exit status 1")
	}

	first := e.Cameras()
	require.Len(t, first, 2)
	_ = e.Cameras()
	assert.Equal(t, 1, probes, "second call must hit the cache")

	e.Refresh()
	_ = e.Cameras()
	assert.Equal(t, 2, probes, "refresh must drop the cache")
}

func TestEnumeratorPlaceholdersWhenProbeFails(t *testing.T) {
	e := NewEnumerator(obs.NewLogger("error"))
	e.runProbe = func(name string, args ...string) (string, string, error) {
		return "", "", errors.New("not found")
	}

	cams := e.Cameras()
	require.Len(t, cams, placeholderCameraCount)
	assert.Equal(t, "Camera 1", cams[0].Name)

	mics := e.Microphones()
	require.Len(t, mics, 1)
	assert.Equal(t, "default", mics[0].DeviceID)

	displays := e.Displays()
	require.Len(t, displays, 1)
	assert.True(t, displays[0].Primary)
}

func camList(names ...string) []domain.VideoDevice {
	out := make([]domain.VideoDevice, len(names))
	for i, n := range names {
		out[i] = domain.VideoDevice{Name: n, DeviceID: "id:" + n, Index: i}
	}
	return out
}

func TestResolveVideoDeviceExactMatch(t *testing.T) {
	cams := camList("Logitech BRIO", "OBS Virtual Camera")
	d, ok := ResolveVideoDevice("logitech brio", cams)
	require.True(t, ok)
	assert.Equal(t, "Logitech BRIO", d.Name)
}

func TestResolveVideoDeviceSubstringMatch(t *testing.T) {
	cams := camList("Logitech BRIO", "OBS Virtual Camera")
	d, ok := ResolveVideoDevice("BRIO", cams)
	require.True(t, ok)
	assert.Equal(t, "Logitech BRIO", d.Name)
}

func TestResolveVideoDeviceTrailingIndex(t *testing.T) {
	cams := camList("Logitech BRIO", "OBS Virtual Camera", "Elgato Facecam")
	d, ok := ResolveVideoDevice("Camera 3", cams)
	require.True(t, ok)
	assert.Equal(t, "Elgato Facecam", d.Name, "trailing index is 1-based into the enumerated list")
}

func TestResolveVideoDeviceFallsBackToFirst(t *testing.T) {
	cams := camList("Logitech BRIO", "OBS Virtual Camera")
	d, ok := ResolveVideoDevice("Nonexistent Cam 9", cams)
	require.True(t, ok)
	assert.Equal(t, "Logitech BRIO", d.Name)
}

func TestResolveVideoDeviceEmptyList(t *testing.T) {
	_, ok := ResolveVideoDevice("Camera 1", nil)
	assert.False(t, ok)
}

func TestResolveAudioDeviceAmbiguousTakesFirst(t *testing.T) {
	mics := []domain.AudioDevice{
		{Name: "Mic 1 (USB)", DeviceID: "a", Index: 0},
		{Name: "Mic 1 (XLR)", DeviceID: "b", Index: 1},
	}
	d, ok := ResolveAudioDevice("Mic 1", mics)
	require.True(t, ok)
	assert.Equal(t, "a", d.DeviceID, "ambiguous matches resolve to the first device found")
}

func TestNormalizeAudioDeviceID(t *testing.T) {
	assert.Equal(t, "default", NormalizeAudioDeviceID("Microphone"))
	assert.Equal(t, "default", NormalizeAudioDeviceID("default"))
	assert.Equal(t, "id:yeti", NormalizeAudioDeviceID("id:yeti"))
}
