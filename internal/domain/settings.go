package domain

// SyncConfig is the persisted cloud-sync (rclone) settings document.
type SyncConfig struct {
	RcloneRemote    string   `json:"rclone_remote"`
	LocalPath       string   `json:"local_path"`
	RemotePath      string   `json:"remote_path"`
	AutoSync        bool     `json:"auto_sync"`
	SyncExportsOnly bool     `json:"sync_exports_only"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

func DefaultSyncConfig(localPath string) SyncConfig {
	return SyncConfig{
		RcloneRemote:    "tutorial-recordings",
		LocalPath:       localPath,
		RemotePath:      "Tutorial Recordings",
		ExcludePatterns: []string{"*.tmp", "*.part"},
	}
}

// TranscriptionConfig is the persisted transcription settings document.
type TranscriptionConfig struct {
	Enabled        bool   `json:"enabled"`
	AutoTranscribe bool   `json:"auto_transcribe"`
	Model          string `json:"model"` // tiny, base, small, medium
	Language       string `json:"language"`
}

func DefaultTranscriptionConfig() TranscriptionConfig {
	return TranscriptionConfig{Model: "small", Language: "en"}
}

// TranscriptionResult is the outcome of one transcription run. Failures are
// carried in Message; they never abort a recording flow.
type TranscriptionResult struct {
	Success    bool
	OutputPath string
	Message    string
}
