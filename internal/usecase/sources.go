package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

// Delays are the settle waits inserted after mutating commands. OBS applies
// profile/scene mutations asynchronously; acting too soon after a mutation
// hits half-materialized state.
type Delays struct {
	ProfileCreate time.Duration
	SwitchCurrent time.Duration // profile already current, sources may still be loading
	Switch        time.Duration
	SceneCreate   time.Duration
	ItemRemoval   time.Duration // between scene item removals
	PostClear     time.Duration
	SourceCreate  time.Duration // between source creations
	PreClear      time.Duration // after making the scene current, before clearing
	FilterReplace time.Duration // between filter removal and re-creation
	StopFinalize  time.Duration // after StopRecord, while OBS finalizes files
}

func DefaultDelays() Delays {
	return Delays{
		ProfileCreate: time.Second,
		SwitchCurrent: 2 * time.Second,
		Switch:        3 * time.Second,
		SceneCreate:   500 * time.Millisecond,
		ItemRemoval:   200 * time.Millisecond,
		PostClear:     time.Second,
		SourceCreate:  300 * time.Millisecond,
		PreClear:      500 * time.Millisecond,
		FilterReplace: 200 * time.Millisecond,
		StopFinalize:  3 * time.Second,
	}
}

const (
	isoFilterName = "ISO_Record"
	isoFilterKind = "source_record_filter"

	// SetInputAudioTracks supports exactly six output tracks.
	maxAudioTracks = 6
)

// SourceManager is the configuration engine: it reconciles OBS's live
// profile/scene/source state toward a ProfileConfiguration, tolerating
// partial prior state. Every operation is idempotent.
type SourceManager struct {
	log     zerolog.Logger
	metrics *obs.Metrics
	obs     OBSClient
	devices DeviceEnumerator
	delays  Delays

	// reports whether the source-record plugin is installed; swapped in tests
	pluginInstalled func() bool
}

func NewSourceManager(client OBSClient, devices DeviceEnumerator, pluginInstalled func() bool, delays Delays, logger *zerolog.Logger, metrics *obs.Metrics) *SourceManager {
	return &SourceManager{
		log:             logger.With().Str("component", "sources").Logger(),
		metrics:         metrics,
		obs:             client,
		devices:         devices,
		delays:          delays,
		pluginInstalled: pluginInstalled,
	}
}

// ProfileList returns the remote profile names and the current profile.
func (m *SourceManager) ProfileList() (names []string, current string, ok bool) {
	resp := m.obs.Send("GetProfileList", nil)
	if !resp.Success {
		return nil, "", false
	}
	for _, p := range resp.List("profiles") {
		if s, isStr := p.(string); isStr {
			names = append(names, s)
		}
	}
	return names, resp.Str("currentProfileName"), true
}

// EnsureProfileExists creates the profile if it is absent. A create that
// races with another creator and reports "already exists" is success.
func (m *SourceManager) EnsureProfileExists(name string) bool {
	if names, _, ok := m.ProfileList(); ok {
		for _, n := range names {
			if n == name {
				return true
			}
		}
	}

	resp := m.obs.Send("CreateProfile", map[string]any{"profileName": name})
	switch {
	case resp.Success:
		m.log.Info().Str("profile", name).Msg("created profile")
		m.metrics.ReconcileFixesTotal.WithLabelValues("profile_created").Inc()
		time.Sleep(m.delays.ProfileCreate)
		return true
	case resp.AlreadyExists():
		return true
	default:
		m.log.Error().Str("profile", name).Str("error", resp.ErrorMessage).Msg("failed to create profile")
		return false
	}
}

// SwitchToProfile makes name the current profile. Even when already current
// a settle wait applies: OBS reports the profile current before its sources
// have finished loading.
func (m *SourceManager) SwitchToProfile(name string) bool {
	_, current, ok := m.ProfileList()
	if ok && current == name {
		m.log.Debug().Str("profile", name).Msg("profile already current, settling")
		time.Sleep(m.delays.SwitchCurrent)
		return true
	}

	resp := m.obs.Send("SetCurrentProfile", map[string]any{"profileName": name})
	if !resp.Success {
		m.log.Error().Str("profile", name).Str("error", resp.ErrorMessage).Msg("failed to switch profile")
		return false
	}
	m.log.Info().Str("profile", name).Msg("switched profile")
	time.Sleep(m.delays.Switch)
	return true
}

// EnsureSceneExists creates the scene if it is absent.
func (m *SourceManager) EnsureSceneExists(scene string) bool {
	resp := m.obs.Send("CreateScene", map[string]any{"sceneName": scene})
	switch {
	case resp.Success:
		m.log.Info().Str("scene", scene).Msg("created scene")
		m.metrics.ReconcileFixesTotal.WithLabelValues("scene_created").Inc()
		time.Sleep(m.delays.SceneCreate)
		return true
	case resp.AlreadyExists():
		return true
	default:
		m.log.Error().Str("scene", scene).Str("error", resp.ErrorMessage).Msg("failed to create scene")
		return false
	}
}

// SetCurrentScene makes the scene the program scene.
func (m *SourceManager) SetCurrentScene(scene string) bool {
	resp := m.obs.Send("SetCurrentProgramScene", map[string]any{"sceneName": scene})
	if !resp.Success {
		m.log.Error().Str("scene", scene).Str("error", resp.ErrorMessage).Msg("failed to set current scene")
	}
	return resp.Success
}

type sceneItem struct {
	id     int
	source string
}

func (m *SourceManager) sceneItems(scene string) ([]sceneItem, bool) {
	resp := m.obs.Send("GetSceneItemList", map[string]any{"sceneName": scene})
	if !resp.Success {
		return nil, false
	}
	var items []sceneItem
	for _, raw := range resp.List("sceneItems") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["sourceName"].(string)
		id, _ := entry["sceneItemId"].(float64)
		items = append(items, sceneItem{id: int(id), source: name})
	}
	return items, true
}

// SceneSources returns the source names currently in the scene.
func (m *SourceManager) SceneSources(scene string) []string {
	items, ok := m.sceneItems(scene)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.source)
	}
	return names
}

// ClearScene removes every item from the scene, one at a time. Rapid-fire
// removals destabilize OBS, hence the per-item wait.
func (m *SourceManager) ClearScene(scene string) bool {
	items, ok := m.sceneItems(scene)
	if !ok {
		return false
	}
	for _, it := range items {
		resp := m.obs.Send("RemoveSceneItem", map[string]any{
			"sceneName":   scene,
			"sceneItemId": it.id,
		})
		if !resp.Success {
			m.log.Warn().Str("source", it.source).Str("error", resp.ErrorMessage).Msg("failed to remove scene item")
		}
		time.Sleep(m.delays.ItemRemoval)
	}
	if len(items) > 0 {
		m.log.Info().Int("removed", len(items)).Str("scene", scene).Msg("cleared scene")
		time.Sleep(m.delays.PostClear)
	}
	return true
}

// CheckIfProfileConfigured reports whether the live scene already contains
// every expected source. Surplus sources are tolerated.
func (m *SourceManager) CheckIfProfileConfigured(scene string, cfg domain.ProfileConfiguration) bool {
	live := m.SceneSources(scene)
	have := make(map[string]bool, len(live))
	for _, n := range live {
		have[n] = true
	}
	for _, want := range cfg.ExpectedSources() {
		if !have[want] {
			m.log.Debug().Str("missing", want).Msg("scene is missing an expected source")
			return false
		}
	}
	return true
}

// VerifyAndFixInputSettings compares each camera and microphone input's live
// device binding against the enumerator's resolution and corrects drift.
// This mutates remote state; it is not advisory.
func (m *SourceManager) VerifyAndFixInputSettings(cfg domain.ProfileConfiguration) {
	for _, cam := range cfg.Cameras {
		dev, ok := m.devices.FindCamera(cam)
		if !ok {
			continue
		}
		m.fixInputBinding(cam, "video_device_id", dev.DeviceID, false)
	}
	for _, mic := range cfg.AudioInputs {
		dev, ok := m.devices.FindMicrophone(mic)
		if !ok {
			continue
		}
		m.fixInputBinding(mic, "device_id", dev.DeviceID, true)
	}
}

// fixInputBinding updates one input's device binding when it differs from
// expected. For audio, an empty live binding is also treated as drift.
func (m *SourceManager) fixInputBinding(input, key, expected string, fixEmpty bool) {
	resp := m.obs.Send("GetInputSettings", map[string]any{"inputName": input})
	if !resp.Success {
		return
	}
	settings, _ := resp.Data["inputSettings"].(map[string]any)
	live, _ := settings[key].(string)
	if live == expected && !(fixEmpty && live == "") {
		return
	}
	m.log.Info().Str("input", input).Str("from", live).Str("to", expected).Msg("correcting device binding")
	m.metrics.ReconcileFixesTotal.WithLabelValues("input_binding").Inc()
	m.obs.Send("SetInputSettings", map[string]any{
		"inputName":     input,
		"inputSettings": map[string]any{key: expected},
		"overlay":       true,
	})
}

// ConfigureProfile is the top-level reconciliation: ensure the profile and
// scene exist, and make the scene's sources match the configuration. When the
// scene already contains every expected source no structure is mutated; only
// device bindings are verified.
func (m *SourceManager) ConfigureProfile(cfg domain.ProfileConfiguration) bool {
	if !m.EnsureProfileExists(cfg.ProfileName) {
		return false
	}
	if !m.SwitchToProfile(cfg.ProfileName) {
		return false
	}

	scene := domain.DefaultSceneName
	if m.CheckIfProfileConfigured(scene, cfg) {
		m.log.Info().Str("profile", cfg.ProfileName).Msg("scene already configured, verifying bindings only")
		m.VerifyAndFixInputSettings(cfg)
		return m.SetCurrentScene(scene)
	}

	if !m.EnsureSceneExists(scene) {
		return false
	}
	if !m.SetCurrentScene(scene) {
		return false
	}
	time.Sleep(m.delays.PreClear)
	if !m.ClearScene(scene) {
		return false
	}

	for i := range cfg.Displays {
		m.createDisplay(scene, i)
		time.Sleep(m.delays.SourceCreate)
	}
	for _, cam := range cfg.Cameras {
		m.createCamera(scene, cam)
		time.Sleep(m.delays.SourceCreate)
	}
	for _, mic := range cfg.AudioInputs {
		m.createAudioCapture(scene, mic)
		time.Sleep(m.delays.SourceCreate)
	}

	m.VerifyAndFixInputSettings(cfg)

	if !m.CheckIfProfileConfigured(scene, cfg) {
		m.log.Error().Str("profile", cfg.ProfileName).Msg("scene still missing expected sources after configuration")
		return false
	}
	m.log.Info().Str("profile", cfg.ProfileName).Msg("profile configured")
	return true
}

// createInput issues CreateInput; when the global source already exists it is
// attached to the scene instead.
func (m *SourceManager) createInput(scene, name, kind string, settings map[string]any) bool {
	resp := m.obs.Send("CreateInput", map[string]any{
		"sceneName":     scene,
		"inputName":     name,
		"inputKind":     kind,
		"inputSettings": settings,
	})
	switch {
	case resp.Success:
		m.log.Info().Str("input", name).Str("kind", kind).Msg("created input")
		m.metrics.ReconcileFixesTotal.WithLabelValues("input_created").Inc()
		return true
	case resp.AlreadyExists():
		attach := m.obs.Send("CreateSceneItem", map[string]any{
			"sceneName":  scene,
			"sourceName": name,
		})
		if attach.Success || attach.AlreadyExists() {
			m.log.Info().Str("input", name).Msg("attached existing input to scene")
			return true
		}
		m.log.Warn().Str("input", name).Str("error", attach.ErrorMessage).Msg("failed to attach existing input")
		return false
	default:
		m.log.Warn().Str("input", name).Str("error", resp.ErrorMessage).Msg("failed to create input")
		return false
	}
}

func (m *SourceManager) createDisplay(scene string, index int) bool {
	name := fmt.Sprintf("Display %d", index+1)
	return m.createInput(scene, name, "monitor_capture", map[string]any{
		"monitor": index,
	})
}

func (m *SourceManager) createCamera(scene, label string) bool {
	settings := map[string]any{
		"res_type":   1,
		"resolution": "1920x1080",
	}
	if dev, ok := m.devices.FindCamera(label); ok {
		settings["video_device_id"] = dev.DeviceID
	} else {
		m.log.Warn().Str("camera", label).Msg("no camera device resolved, creating unbound input")
	}
	return m.createInput(scene, label, "dshow_input", settings)
}

func (m *SourceManager) createAudioCapture(scene, label string) bool {
	settings := map[string]any{}
	if dev, ok := m.devices.FindMicrophone(label); ok {
		settings["device_id"] = dev.DeviceID
	} else {
		settings["device_id"] = "default"
	}
	return m.createInput(scene, label, "wasapi_input_capture", settings)
}

// EnableISORecording attaches per-source recording so each capture gets its
// own output file. Video sources get a source-record filter writing into
// recordPath (skipped with a warning when the plugin is missing); audio
// sources get exclusive output tracks. Success means at least one source in
// either category was configured.
func (m *SourceManager) EnableISORecording(scene, recordPath string) bool {
	sources := m.SceneSources(scene)
	if len(sources) == 0 {
		m.log.Warn().Str("scene", scene).Msg("no sources in scene, nothing to ISO-record")
		return false
	}

	var video, audio []string
	for _, s := range sources {
		if domain.IsAudioSourceName(s) {
			audio = append(audio, s)
		} else {
			video = append(video, s)
		}
	}

	videoOK := 0
	if len(video) > 0 {
		if m.pluginInstalled() {
			for _, src := range video {
				if m.attachISOFilter(src, recordPath) {
					videoOK++
				}
			}
		} else {
			m.log.Warn().Msg("source-record plugin not installed, skipping video ISO recording")
		}
	}

	audioOK, dropped := m.ConfigureAudioTracks(audio)
	if len(dropped) > 0 {
		m.log.Warn().Strs("dropped", dropped).Msg("audio sources beyond the track limit were not configured")
	}

	m.log.Info().Int("video", videoOK).Int("audio", audioOK).Msg("ISO recording enabled")
	return videoOK > 0 || audioOK > 0
}

// attachISOFilter replaces any existing recording filter on the source with a
// fresh one targeting recordPath.
func (m *SourceManager) attachISOFilter(source, recordPath string) bool {
	// remove first so a stale filter never keeps an old record path
	m.obs.Send("RemoveSourceFilter", map[string]any{
		"sourceName": source,
		"filterName": isoFilterName,
	})
	time.Sleep(m.delays.FilterReplace)

	resp := m.obs.Send("CreateSourceFilter", map[string]any{
		"sourceName": source,
		"filterName": isoFilterName,
		"filterKind": isoFilterKind,
		"filterSettings": map[string]any{
			"record_mode":         3,
			"path":                forwardSlashes(recordPath),
			"filename_formatting": source + " %CCYY-%MM-%DD %hh-%mm-%ss",
			"rec_format":          "mkv",
		},
	})
	if !resp.Success && !resp.AlreadyExists() {
		m.log.Warn().Str("source", source).Str("error", resp.ErrorMessage).Msg("failed to attach recording filter")
		return false
	}
	return true
}

// ConfigureAudioTracks assigns each audio source an exclusive output track.
// OBS supports six tracks; sources beyond the sixth are returned as dropped.
func (m *SourceManager) ConfigureAudioTracks(sources []string) (configured int, dropped []string) {
	if len(sources) > maxAudioTracks {
		dropped = sources[maxAudioTracks:]
		sources = sources[:maxAudioTracks]
	}
	for i, src := range sources {
		tracks := make(map[string]any, maxAudioTracks)
		for t := 1; t <= maxAudioTracks; t++ {
			tracks[fmt.Sprintf("%d", t)] = t == i+1
		}
		resp := m.obs.Send("SetInputAudioTracks", map[string]any{
			"inputName":        src,
			"inputAudioTracks": tracks,
		})
		if !resp.Success {
			m.log.Warn().Str("input", src).Str("error", resp.ErrorMessage).Msg("failed to assign audio track")
			continue
		}
		m.log.Debug().Str("input", src).Int("track", i+1).Msg("assigned exclusive audio track")
		configured++
	}
	return configured, dropped
}

// DisableISORecording removes the recording filter from every scene source.
// Absence of the filter is not an error.
func (m *SourceManager) DisableISORecording(scene string) {
	for _, src := range m.SceneSources(scene) {
		resp := m.obs.Send("RemoveSourceFilter", map[string]any{
			"sourceName": src,
			"filterName": isoFilterName,
		})
		if resp.Success {
			m.log.Debug().Str("source", src).Msg("removed recording filter")
		}
	}
}

// VerifySceneSources logs any drift between expected and live sources. This
// is a diagnostic pass only; it never fails.
func (m *SourceManager) VerifySceneSources(scene string, cfg domain.ProfileConfiguration) {
	live := m.SceneSources(scene)
	have := make(map[string]bool, len(live))
	for _, n := range live {
		have[n] = true
	}
	want := make(map[string]bool)
	for _, n := range cfg.ExpectedSources() {
		want[n] = true
		if !have[n] {
			m.log.Warn().Str("source", n).Msg("expected source missing from scene")
		}
	}
	for _, n := range live {
		if !want[n] {
			m.log.Debug().Str("source", n).Msg("scene has a surplus source")
		}
	}
}

func forwardSlashes(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
