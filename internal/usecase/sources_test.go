package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

func TestEnsureProfileExistsFindsExisting(t *testing.T) {
	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{
			"profiles":           []any{"Default", "Demo"},
			"currentProfileName": "Default",
		})
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.EnsureProfileExists("Demo"))
	assert.Zero(t, f.count("CreateProfile"))
}

func TestEnsureProfileExistsCreates(t *testing.T) {
	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{"profiles": []any{"Default"}})
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.EnsureProfileExists("Demo"))
	require.Equal(t, 1, f.count("CreateProfile"))
	assert.Equal(t, "Demo", f.callsOf("CreateProfile")[0].Data["profileName"])
}

func TestEnsureProfileExistsToleratesAlreadyExists(t *testing.T) {
	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{"profiles": []any{}})
	})
	f.on("CreateProfile", func(map[string]any) domain.Response {
		return errResp(domain.ErrCodeAlreadyExists, "profile already exists")
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.EnsureProfileExists("Demo"))
}

func TestEnsureProfileExistsSurfacesOtherErrors(t *testing.T) {
	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{"profiles": []any{}})
	})
	f.on("CreateProfile", func(map[string]any) domain.Response {
		return errResp(702, "output is busy")
	})
	m := newTestSourceManager(f, true)

	assert.False(t, m.EnsureProfileExists("Demo"))
}

func TestEnsureSceneExistsToleratesAlreadyExists(t *testing.T) {
	f := newFakeOBS()
	f.on("CreateScene", func(map[string]any) domain.Response {
		return errResp(domain.ErrCodeAlreadyExists, "scene already exists")
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.EnsureSceneExists("Tutorial Recording"))
}

func TestSwitchToProfileSkipsWhenCurrent(t *testing.T) {
	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{
			"profiles":           []any{"Demo"},
			"currentProfileName": "Demo",
		})
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.SwitchToProfile("Demo"))
	assert.Zero(t, f.count("SetCurrentProfile"))
}

func TestCheckIfProfileConfiguredToleratesSurplus(t *testing.T) {
	cfg := domain.ProfileConfiguration{
		ProfileName: "Demo",
		Displays:    []string{"main"},
		Cameras:     []string{"Camera 1"},
	}

	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith("Display 1", "Camera 1", "Extra Overlay"))
	m := newTestSourceManager(f, true)
	assert.True(t, m.CheckIfProfileConfigured("Tutorial Recording", cfg),
		"surplus sources are tolerated")

	f2 := newFakeOBS()
	f2.on("GetSceneItemList", sceneWith("Display 1"))
	m2 := newTestSourceManager(f2, true)
	assert.False(t, m2.CheckIfProfileConfigured("Tutorial Recording", cfg),
		"missing sources mean not configured")
}

func TestClearSceneRemovesEveryItem(t *testing.T) {
	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith("Display 1", "Camera 1"))
	m := newTestSourceManager(f, true)

	require.True(t, m.ClearScene("Tutorial Recording"))
	removals := f.callsOf("RemoveSceneItem")
	require.Len(t, removals, 2)
	assert.Equal(t, 1, removals[0].Data["sceneItemId"])
	assert.Equal(t, 2, removals[1].Data["sceneItemId"])
}

func TestConfigureProfileFastPath(t *testing.T) {
	cfg := domain.ProfileConfiguration{
		ProfileName: "Demo",
		Displays:    []string{"main"},
		Cameras:     []string{"Camera 1"},
		AudioInputs: []string{"Microphone"},
	}

	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{
			"profiles":           []any{"Default"},
			"currentProfileName": "Default",
		})
	})
	f.on("CreateProfile", func(map[string]any) domain.Response {
		return errResp(domain.ErrCodeAlreadyExists, "profile already exists")
	})
	f.on("GetSceneItemList", sceneWith("Display 1", "Camera 1", "Microphone"))
	f.on("GetInputSettings", func(data map[string]any) domain.Response {
		switch data["inputName"] {
		case "Camera 1":
			return okResp(map[string]any{"inputSettings": map[string]any{"video_device_id": "cam-id-1"}})
		default:
			return okResp(map[string]any{"inputSettings": map[string]any{"device_id": "mic-id-1"}})
		}
	})
	m := newTestSourceManager(f, true)

	require.True(t, m.ConfigureProfile(cfg))

	// fast path must not mutate scene structure
	assert.Zero(t, f.count("CreateScene"))
	assert.Zero(t, f.count("RemoveSceneItem"))
	assert.Zero(t, f.count("CreateInput"))
	assert.Zero(t, f.count("SetInputSettings"), "bindings already correct")
	assert.Equal(t, 1, f.count("SetCurrentProgramScene"))
}

func TestConfigureProfileSlowPathCreatesSources(t *testing.T) {
	cfg := domain.ProfileConfiguration{
		ProfileName: "Demo",
		Displays:    []string{"main"},
		Cameras:     []string{"Camera 1"},
		AudioInputs: []string{"Microphone"},
	}

	f := newFakeOBS()
	f.on("GetProfileList", func(map[string]any) domain.Response {
		return okResp(map[string]any{
			"profiles":           []any{"Demo"},
			"currentProfileName": "Demo",
		})
	})

	// scene starts empty; created inputs become visible to later queries
	var created []string
	f.on("GetSceneItemList", func(map[string]any) domain.Response {
		items := make([]any, 0, len(created))
		for i, n := range created {
			items = append(items, map[string]any{"sceneItemId": float64(i + 1), "sourceName": n})
		}
		return okResp(map[string]any{"sceneItems": items})
	})
	f.on("CreateInput", func(data map[string]any) domain.Response {
		created = append(created, data["inputName"].(string))
		return okResp(nil)
	})
	f.on("GetInputSettings", func(map[string]any) domain.Response {
		return okResp(map[string]any{"inputSettings": map[string]any{
			"video_device_id": "cam-id-1",
			"device_id":       "mic-id-1",
		}})
	})
	m := newTestSourceManager(f, true)

	require.True(t, m.ConfigureProfile(cfg))
	assert.Equal(t, []string{"Display 1", "Camera 1", "Microphone"}, created)

	kinds := make(map[string]string)
	for _, c := range f.callsOf("CreateInput") {
		kinds[c.Data["inputName"].(string)] = c.Data["inputKind"].(string)
	}
	assert.Equal(t, "monitor_capture", kinds["Display 1"])
	assert.Equal(t, "dshow_input", kinds["Camera 1"])
	assert.Equal(t, "wasapi_input_capture", kinds["Microphone"])
}

func TestCreateInputAlreadyExistsAttachesSceneItem(t *testing.T) {
	f := newFakeOBS()
	f.on("CreateInput", func(map[string]any) domain.Response {
		return errResp(domain.ErrCodeAlreadyExists, "input already exists")
	})
	m := newTestSourceManager(f, true)

	assert.True(t, m.createCamera("Tutorial Recording", "Camera 1"))
	require.Equal(t, 1, f.count("CreateSceneItem"))
	assert.Equal(t, "Camera 1", f.callsOf("CreateSceneItem")[0].Data["sourceName"])
}

func TestVerifyAndFixInputSettingsCorrectsDrift(t *testing.T) {
	cfg := domain.ProfileConfiguration{
		ProfileName: "Demo",
		Cameras:     []string{"Camera 1"},
		AudioInputs: []string{"Microphone"},
	}

	f := newFakeOBS()
	f.on("GetInputSettings", func(data map[string]any) domain.Response {
		if data["inputName"] == "Camera 1" {
			return okResp(map[string]any{"inputSettings": map[string]any{"video_device_id": "stale-id"}})
		}
		// empty audio binding counts as drift
		return okResp(map[string]any{"inputSettings": map[string]any{}})
	})
	m := newTestSourceManager(f, true)

	m.VerifyAndFixInputSettings(cfg)

	fixes := f.callsOf("SetInputSettings")
	require.Len(t, fixes, 2)
	camSettings := fixes[0].Data["inputSettings"].(map[string]any)
	assert.Equal(t, "cam-id-1", camSettings["video_device_id"])
	micSettings := fixes[1].Data["inputSettings"].(map[string]any)
	assert.Equal(t, "mic-id-1", micSettings["device_id"])
}

func TestConfigureAudioTracksCapsAtSix(t *testing.T) {
	var mics []string
	for i := 1; i <= 8; i++ {
		mics = append(mics, fmt.Sprintf("Mic %d", i))
	}

	f := newFakeOBS()
	m := newTestSourceManager(f, true)

	configured, dropped := m.ConfigureAudioTracks(mics)
	assert.Equal(t, 6, configured)
	assert.Equal(t, []string{"Mic 7", "Mic 8"}, dropped)

	calls := f.callsOf("SetInputAudioTracks")
	require.Len(t, calls, 6)
	for i, c := range calls {
		tracks := c.Data["inputAudioTracks"].(map[string]any)
		for track := 1; track <= 6; track++ {
			want := track == i+1
			assert.Equal(t, want, tracks[fmt.Sprintf("%d", track)],
				"source %d must own exactly track %d", i+1, i+1)
		}
	}
}

func TestEnableISOPartitionsSources(t *testing.T) {
	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith("Display 1", "Camera 1", "Mic 1", "Mic 2"))
	m := newTestSourceManager(f, true)

	require.True(t, m.EnableISORecording("Tutorial Recording", `C:\rec\session`))

	filters := f.callsOf("CreateSourceFilter")
	require.Len(t, filters, 2, "one filter per video source")
	for _, c := range filters {
		assert.Equal(t, "ISO_Record", c.Data["filterName"])
		settings := c.Data["filterSettings"].(map[string]any)
		assert.Equal(t, "C:/rec/session", settings["path"], "record paths use forward slashes")
		assert.Equal(t, 3, settings["record_mode"])
		assert.Equal(t, "mkv", settings["rec_format"])
	}
	assert.Equal(t, 2, f.count("SetInputAudioTracks"))
}

func TestEnableISOWithoutPluginStillConfiguresAudio(t *testing.T) {
	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith("Camera 1", "Mic 1"))
	m := newTestSourceManager(f, false)

	assert.True(t, m.EnableISORecording("Tutorial Recording", "/rec/session"),
		"audio-only success is still success")
	assert.Zero(t, f.count("CreateSourceFilter"))
	assert.Equal(t, 1, f.count("SetInputAudioTracks"))
}

func TestEnableISOEmptySceneFails(t *testing.T) {
	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith())
	m := newTestSourceManager(f, true)

	assert.False(t, m.EnableISORecording("Tutorial Recording", "/rec/session"))
}

func TestDisableISORecordingIgnoresMissingFilters(t *testing.T) {
	f := newFakeOBS()
	f.on("GetSceneItemList", sceneWith("Display 1", "Camera 1"))
	f.on("RemoveSourceFilter", func(map[string]any) domain.Response {
		return errResp(600, "filter not found")
	})
	m := newTestSourceManager(f, true)

	m.DisableISORecording("Tutorial Recording")
	assert.Equal(t, 2, f.count("RemoveSourceFilter"))
}
