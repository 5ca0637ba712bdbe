package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/paths"
	"github.com/dmhernandez2525/obs-tutorial-recorder/pkg/shared/id"
)

// RecorderOptions wires the recorder's collaborators and tuning.
type RecorderOptions struct {
	OBS         OBSClient
	Sources     *SourceManager
	Store       ProfileStore
	Proc        ProcessManager
	Transcriber Transcriber
	Syncer      Syncer

	RecordingsBase    string
	VideosDir         string
	ConnectRetries    int
	ConnectRetryDelay time.Duration
	Delays            Delays

	Logger  *zerolog.Logger
	Metrics *obs.Metrics
}

// Recorder is the recording session state machine:
// IDLE -> STARTING -> RECORDING -> STOPPING -> IDLE. Exactly one session may
// exist at a time; only IDLE accepts a start and only RECORDING accepts a
// stop. Partial remote state left behind by a failed start is not rolled
// back; the next start converges through reconciliation instead.
type Recorder struct {
	log     zerolog.Logger
	metrics *obs.Metrics

	obs         OBSClient
	sources     *SourceManager
	store       ProfileStore
	proc        ProcessManager
	transcriber Transcriber
	syncer      Syncer

	recordingsBase    string
	videosDir         string
	connectRetries    int
	connectRetryDelay time.Duration
	delays            Delays

	now func() time.Time

	mu        sync.Mutex
	state     domain.RecordingState
	session   *domain.SessionInfo
	lastError string

	cbMu      sync.Mutex
	callbacks map[int]func(domain.RecordingState)
	nextCB    int
}

func NewRecorder(opts RecorderOptions) *Recorder {
	return &Recorder{
		log:               opts.Logger.With().Str("component", "recorder").Logger(),
		metrics:           opts.Metrics,
		obs:               opts.OBS,
		sources:           opts.Sources,
		store:             opts.Store,
		proc:              opts.Proc,
		transcriber:       opts.Transcriber,
		syncer:            opts.Syncer,
		recordingsBase:    opts.RecordingsBase,
		videosDir:         opts.VideosDir,
		connectRetries:    opts.ConnectRetries,
		connectRetryDelay: opts.ConnectRetryDelay,
		delays:            opts.Delays,
		now:               time.Now,
		state:             domain.StateIdle,
		callbacks:         make(map[int]func(domain.RecordingState)),
	}
}

// State returns the current state machine state.
func (r *Recorder) State() domain.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns the in-flight session, if any.
func (r *Recorder) Session() (domain.SessionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return domain.SessionInfo{}, false
	}
	return *r.session, true
}

// LastError returns the most recent hard failure message.
func (r *Recorder) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// OnStateChange registers a callback fired on every transition. The returned
// handle removes it via RemoveStateCallback.
func (r *Recorder) OnStateChange(cb func(domain.RecordingState)) int {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.nextCB++
	r.callbacks[r.nextCB] = cb
	return r.nextCB
}

func (r *Recorder) RemoveStateCallback(handle int) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	delete(r.callbacks, handle)
}

// setState transitions and fires callbacks. A panicking callback must never
// corrupt the transition.
func (r *Recorder) setState(s domain.RecordingState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	r.cbMu.Lock()
	cbs := make([]func(domain.RecordingState), 0, len(r.callbacks))
	for _, cb := range r.callbacks {
		cbs = append(cbs, cb)
	}
	r.cbMu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error().Interface("panic", rec).Msg("state callback panicked")
				}
			}()
			cb(s)
		}()
	}
}

// RecordActive queries OBS for the live record output state.
func (r *Recorder) RecordActive() bool {
	resp := r.obs.Send("GetRecordStatus", nil)
	return resp.Success && resp.Bool("outputActive")
}

// StartRecording provisions OBS and starts a session. Only IDLE accepts it.
// The pipeline is fail-fast: any hard failure records lastError, returns the
// machine to IDLE, and leaves partial remote state for the next attempt's
// reconciliation to absorb.
func (r *Recorder) StartRecording(projectName, profileName string, progress func(string)) bool {
	r.mu.Lock()
	if r.state != domain.StateIdle {
		state := r.state
		r.mu.Unlock()
		r.log.Warn().Str("state", string(state)).Msg("start rejected: recorder is busy")
		return false
	}
	r.mu.Unlock()
	r.setState(domain.StateStarting)

	sessionID := id.New()
	log := r.log.With().Str("session", sessionID).Str("project", projectName).Logger()
	report := func(msg string) {
		log.Info().Msg(msg)
		if progress != nil {
			progress(msg)
		}
	}
	fail := func(msg string) bool {
		log.Error().Msg(msg)
		if progress != nil {
			progress(msg)
		}
		r.mu.Lock()
		r.lastError = msg
		r.mu.Unlock()
		r.setState(domain.StateIdle)
		return false
	}

	// project folder structure
	report("creating project folders")
	projectPath := paths.ProjectPath(r.recordingsBase, projectName, r.now())
	if err := r.ensureProject(projectPath, projectName); err != nil {
		return fail(fmt.Sprintf("failed to create project folders: %v", err))
	}

	// OBS process
	report("checking OBS")
	if err := r.proc.EnsureRunning(); err != nil {
		return fail(fmt.Sprintf("failed to launch OBS: %v", err))
	}

	// control-plane connection
	if !r.obs.Connected() {
		report("connecting to OBS")
		if !r.obs.Connect(r.connectRetries, r.connectRetryDelay) {
			return fail("could not connect to OBS websocket")
		}
	}

	// profile configuration, persisted or synthesized
	cfg, ok := r.store.Profile(profileName)
	if !ok {
		log.Info().Str("profile", profileName).Msg("no saved configuration, using defaults")
		cfg = domain.DefaultProfileConfiguration(profileName)
	}

	report("configuring profile " + profileName)
	if !r.sources.ConfigureProfile(cfg) {
		return fail("failed to configure profile " + profileName)
	}

	// diagnostic only
	r.sources.VerifySceneSources(domain.DefaultSceneName, cfg)

	// timestamped session folder
	start := r.now()
	sessionPath := paths.SessionDir(projectPath, start)
	if err := paths.EnsureDir(sessionPath); err != nil {
		return fail(fmt.Sprintf("failed to create session folder: %v", err))
	}

	// point OBS output at the raw folder; soft failure, OBS's default
	// location still gets scanned at collection time
	rawDir := filepath.Join(projectPath, "raw")
	if resp := r.obs.Send("SetRecordDirectory", map[string]any{"recordDirectory": rawDir}); !resp.Success {
		log.Warn().Str("error", resp.ErrorMessage).Msg("could not set record directory, using OBS default")
	}

	// per-source ISO recording attaches to the scene, not the profile
	report("enabling ISO recording")
	if !r.sources.EnableISORecording(domain.DefaultSceneName, sessionPath) {
		log.Warn().Msg("no ISO sources configured, composite recording only")
	}

	report("starting recording")
	if resp := r.obs.Send("StartRecord", nil); !resp.Success {
		return fail("failed to start recording: " + resp.ErrorMessage)
	}

	r.mu.Lock()
	r.session = &domain.SessionInfo{
		ID:          sessionID,
		ProjectName: projectName,
		ProjectPath: projectPath,
		SessionPath: sessionPath,
		ProfileName: profileName,
		SceneName:   domain.DefaultSceneName,
		StartTime:   start,
	}
	r.lastError = ""
	r.mu.Unlock()
	r.metrics.RecordingsStarted.Inc()
	r.setState(domain.StateRecording)
	report("recording")
	return true
}

// StopRecording stops the session and tears it down. Only RECORDING accepts
// it. Every teardown step is soft: the session is always cleared and the
// machine always returns to IDLE.
func (r *Recorder) StopRecording(progress func(string)) bool {
	r.mu.Lock()
	if r.state != domain.StateRecording || r.session == nil {
		r.mu.Unlock()
		r.log.Warn().Msg("stop rejected: no recording in progress")
		return false
	}
	session := *r.session
	r.mu.Unlock()
	r.setState(domain.StateStopping)

	log := r.log.With().Str("session", session.ID).Logger()
	report := func(msg string) {
		log.Info().Msg(msg)
		if progress != nil {
			progress(msg)
		}
	}

	defer func() {
		r.mu.Lock()
		r.session = nil
		r.mu.Unlock()
		r.metrics.RecordingsStopped.Inc()
		r.setState(domain.StateIdle)
	}()

	report("stopping recording")
	if resp := r.obs.Send("StopRecord", nil); resp.Success {
		if out := resp.Str("outputPath"); out != "" {
			log.Info().Str("output", out).Msg("composite recording written")
		}
	} else {
		// teardown proceeds regardless; the session must be cleared
		log.Warn().Str("error", resp.ErrorMessage).Msg("stop command failed")
	}

	time.Sleep(r.delays.StopFinalize)

	r.sources.DisableISORecording(session.SceneName)

	report("collecting recordings")
	collected := r.collectRecordings(session)
	report(fmt.Sprintf("collected %d recording(s)", len(collected)))

	if err := r.appendRecordingEntry(session); err != nil {
		log.Warn().Err(err).Msg("could not update project metadata")
	}

	r.postProcess(session, collected, report)
	report("session complete")
	return true
}

// postProcess runs the non-fatal collaborators: transcription of the largest
// collected video, then a background sync of the project tree.
func (r *Recorder) postProcess(session domain.SessionInfo, collected []string, report func(string)) {
	tcfg := r.store.TranscriptionConfig()
	if tcfg.Enabled && tcfg.AutoTranscribe {
		if video := largestVideo(collected); video != "" {
			report("transcribing " + filepath.Base(video))
			res := r.transcriber.Transcribe(video, tcfg, report)
			if !res.Success {
				r.log.Warn().Str("reason", res.Message).Msg("transcription skipped")
			}
		}
	}

	scfg := r.store.SyncConfig()
	if scfg.AutoSync {
		go func() {
			if msg, err := r.syncer.Sync(session.ProjectPath, scfg); err != nil {
				r.log.Warn().Err(err).Msg("cloud sync failed")
			} else {
				r.log.Info().Msg(msg)
			}
		}()
	}
}

// ensureProject creates raw/, exports/, and metadata.json for the project.
// Existing projects are reused.
func (r *Recorder) ensureProject(projectPath, projectName string) error {
	for _, dir := range []string{
		projectPath,
		filepath.Join(projectPath, "raw"),
		filepath.Join(projectPath, "exports"),
	} {
		if err := paths.EnsureDir(dir); err != nil {
			return err
		}
	}
	metaPath := filepath.Join(projectPath, "metadata.json")
	if _, err := os.Stat(metaPath); err == nil {
		return nil
	}
	meta := domain.ProjectMetadata{
		ProjectName: projectName,
		DateCreated: r.now().Format("2006-01-02"),
		Recordings:  []string{},
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(metaPath, data, 0o644)
}

// appendRecordingEntry records the session folder name in metadata.json.
func (r *Recorder) appendRecordingEntry(session domain.SessionInfo) error {
	metaPath := filepath.Join(session.ProjectPath, "metadata.json")
	var meta domain.ProjectMetadata
	if data, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	if meta.ProjectName == "" {
		meta.ProjectName = session.ProjectName
		meta.DateCreated = session.StartTime.Format("2006-01-02")
	}
	meta.Recordings = append(meta.Recordings, paths.SessionTimestamp(session.StartTime))
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(metaPath, data, 0o644)
}

// ExistingProjects lists project folders under the recordings base, newest
// first, capped at 10.
func (r *Recorder) ExistingProjects() []domain.ProjectSummary {
	entries, err := os.ReadDir(r.recordingsBase)
	if err != nil {
		return nil
	}
	var out []domain.ProjectSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metaPath := filepath.Join(r.recordingsBase, e.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}
		var meta domain.ProjectMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		out = append(out, domain.ProjectSummary{
			Path: filepath.Join(r.recordingsBase, e.Name()),
			Name: meta.ProjectName,
			Date: meta.DateCreated,
		})
	}
	// folder names are date-prefixed, so lexical order is chronological
	sort.Slice(out, func(i, j int) bool { return out[i].Path > out[j].Path })
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// largestVideo picks the biggest collected file, the composite mix in
// practice.
func largestVideo(files []string) string {
	var best string
	var bestSize int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = f, info.Size()
		}
	}
	return best
}
