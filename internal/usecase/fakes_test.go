package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
	obs "github.com/dmhernandez2525/obs-tutorial-recorder/internal/infrastructure/observability"
)

// fakeOBS is a scripted control-plane client: handlers keyed by request type
// decide each response, everything else succeeds with an empty payload.
type fakeOBS struct {
	mu        sync.Mutex
	connected bool
	connectOK bool
	handlers  map[string]func(data map[string]any) domain.Response
	calls     []fakeCall
}

type fakeCall struct {
	Type string
	Data map[string]any
}

func newFakeOBS() *fakeOBS {
	return &fakeOBS{
		connected: true,
		connectOK: true,
		handlers:  make(map[string]func(map[string]any) domain.Response),
	}
}

func (f *fakeOBS) on(requestType string, h func(map[string]any) domain.Response) {
	f.handlers[requestType] = h
}

func (f *fakeOBS) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeOBS) Connect(maxRetries int, retryDelay time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectOK {
		f.connected = true
	}
	return f.connectOK
}

func (f *fakeOBS) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeOBS) Send(requestType string, data map[string]any) domain.Response {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Type: requestType, Data: data})
	h := f.handlers[requestType]
	f.mu.Unlock()
	if h != nil {
		resp := h(data)
		resp.RequestType = requestType
		return resp
	}
	return domain.Response{Success: true, RequestType: requestType}
}

func (f *fakeOBS) SendTimeout(requestType string, data map[string]any, _ time.Duration) domain.Response {
	return f.Send(requestType, data)
}

func (f *fakeOBS) count(requestType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Type == requestType {
			n++
		}
	}
	return n
}

func (f *fakeOBS) callsOf(requestType string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.Type == requestType {
			out = append(out, c)
		}
	}
	return out
}

func okResp(data map[string]any) domain.Response {
	return domain.Response{Success: true, Data: data}
}

func errResp(code int, msg string) domain.Response {
	return domain.Response{Success: false, ErrorCode: code, ErrorMessage: msg}
}

// sceneWith scripts GetSceneItemList to return the given source names.
func sceneWith(names ...string) func(map[string]any) domain.Response {
	return func(map[string]any) domain.Response {
		items := make([]any, 0, len(names))
		for i, n := range names {
			items = append(items, map[string]any{
				"sceneItemId": float64(i + 1),
				"sourceName":  n,
			})
		}
		return okResp(map[string]any{"sceneItems": items})
	}
}

// fakeDevices serves fixed device lists with naive exact-or-first resolution.
type fakeDevices struct {
	cameras  []domain.VideoDevice
	mics     []domain.AudioDevice
	displays []domain.Display
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{
		cameras: []domain.VideoDevice{
			{Name: "Camera 1", DeviceID: "cam-id-1", Index: 0},
			{Name: "Camera 2", DeviceID: "cam-id-2", Index: 1},
		},
		mics: []domain.AudioDevice{
			{Name: "Microphone", DeviceID: "mic-id-1", Index: 0},
		},
		displays: []domain.Display{
			{Name: "Display 1", Index: 0, Width: 1920, Height: 1080, Primary: true},
		},
	}
}

func (d *fakeDevices) Cameras() []domain.VideoDevice     { return d.cameras }
func (d *fakeDevices) Microphones() []domain.AudioDevice { return d.mics }
func (d *fakeDevices) Displays() []domain.Display        { return d.displays }
func (d *fakeDevices) Refresh()                          {}

func (d *fakeDevices) FindCamera(name string) (domain.VideoDevice, bool) {
	for _, c := range d.cameras {
		if c.Name == name {
			return c, true
		}
	}
	if len(d.cameras) > 0 {
		return d.cameras[0], true
	}
	return domain.VideoDevice{}, false
}

func (d *fakeDevices) FindMicrophone(name string) (domain.AudioDevice, bool) {
	for _, m := range d.mics {
		if m.Name == name {
			return m, true
		}
	}
	if len(d.mics) > 0 {
		return d.mics[0], true
	}
	return domain.AudioDevice{}, false
}

// fakeStore holds profile configurations in memory.
type fakeStore struct {
	profiles      map[string]domain.ProfileConfiguration
	sync          domain.SyncConfig
	transcription domain.TranscriptionConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]domain.ProfileConfiguration)}
}

func (s *fakeStore) Profile(name string) (domain.ProfileConfiguration, bool) {
	cfg, ok := s.profiles[name]
	return cfg, ok
}

func (s *fakeStore) ProfileNames() []string {
	var out []string
	for n := range s.profiles {
		out = append(out, n)
	}
	return out
}

func (s *fakeStore) SaveProfile(cfg domain.ProfileConfiguration) error {
	s.profiles[cfg.ProfileName] = cfg
	return nil
}

func (s *fakeStore) SyncConfig() domain.SyncConfig                   { return s.sync }
func (s *fakeStore) TranscriptionConfig() domain.TranscriptionConfig { return s.transcription }

type fakeProc struct {
	running   bool
	ensureErr error
}

func (p *fakeProc) IsRunning() bool      { return p.running }
func (p *fakeProc) EnsureRunning() error { return p.ensureErr }

type fakeTranscriber struct {
	available bool
	calls     []string
}

func (t *fakeTranscriber) Available() bool { return t.available }

func (t *fakeTranscriber) Transcribe(video string, _ domain.TranscriptionConfig, _ func(string)) domain.TranscriptionResult {
	t.calls = append(t.calls, video)
	return domain.TranscriptionResult{Success: true, OutputPath: video + ".txt"}
}

type fakeSyncer struct {
	mu    sync.Mutex
	calls []string
}

func (s *fakeSyncer) Available() bool { return true }

func (s *fakeSyncer) Sync(localPath string, _ domain.SyncConfig) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, localPath)
	return fmt.Sprintf("synced %s", localPath), nil
}

func newTestSourceManager(f *fakeOBS, plugin bool) *SourceManager {
	return NewSourceManager(
		f, newFakeDevices(),
		func() bool { return plugin },
		Delays{}, // zero settle delays keep tests fast
		obs.NewLogger("error"), obs.NewMetrics(),
	)
}
