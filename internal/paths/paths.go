// Package paths resolves the on-disk layout: recordings tree, config files,
// OBS install locations, and the source-record plugin probe.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

// RecordingsBase is the root of the recordings tree
// (Desktop/Tutorial Recordings by default).
func RecordingsBase() string {
	return filepath.Join(home(), "Desktop", "Tutorial Recordings")
}

// ConfigDir holds the persisted JSON configuration documents.
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, "TutorialRecorder")
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tutorial-recorder")
	}
	return filepath.Join(home(), ".config", "tutorial-recorder")
}

// VideosDir is the user's Videos folder, OBS's default output location.
func VideosDir() string {
	return filepath.Join(home(), "Videos")
}

// OBSPath returns the OBS executable, checking common install locations.
// The first candidate is returned even when nothing exists so the caller can
// report a concrete path in its error.
func OBSPath() string {
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		candidates = []string{
			`C:\Program Files\obs-studio\bin\64bit\obs64.exe`,
			`C:\Program Files (x86)\obs-studio\bin\64bit\obs64.exe`,
			filepath.Join(home(), "AppData", "Local", "Programs", "obs-studio", "bin", "64bit", "obs64.exe"),
		}
	case "darwin":
		candidates = []string{"/Applications/OBS.app/Contents/MacOS/obs"}
	default:
		candidates = []string{"/usr/bin/obs", "/usr/local/bin/obs"}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

// SourceRecordPluginInstalled checks the OBS 28+ user plugin location, the
// legacy user plugin folder, and the system plugin folder for source-record.
func SourceRecordPluginInstalled() bool {
	for _, p := range sourceRecordCandidates() {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

func sourceRecordCandidates() []string {
	if runtime.GOOS == "windows" {
		appdata := os.Getenv("APPDATA")
		if appdata == "" {
			appdata = filepath.Join(home(), "AppData", "Roaming")
		}
		return []string{
			filepath.Join(appdata, "obs-studio", "plugins", "source-record", "bin", "64bit", "source-record.dll"),
			filepath.Join(appdata, "obs-studio", "obs-plugins", "64bit", "source-record.dll"),
			`C:\Program Files\obs-studio\obs-plugins\64bit\source-record.dll`,
			`C:\Program Files\obs-studio\obs-plugins\32bit\source-record.dll`,
		}
	}
	return []string{
		filepath.Join(home(), ".config", "obs-studio", "plugins", "source-record", "bin", "64bit", "source-record.so"),
		"/usr/lib/obs-plugins/source-record.so",
		"/usr/share/obs/obs-plugins/source-record.so",
	}
}

// ProfileConfigsPath is the JSON document mapping profile name to configuration.
func ProfileConfigsPath() string {
	return filepath.Join(ConfigDir(), "profile-configs.json")
}

// SyncConfigPath is the cloud-sync settings JSON document.
func SyncConfigPath() string {
	return filepath.Join(ConfigDir(), "sync-config.json")
}

// TranscriptionConfigPath is the transcription settings JSON document.
func TranscriptionConfigPath() string {
	return filepath.Join(ConfigDir(), "transcription-config.json")
}

// ProjectPath builds the dated project folder path:
// <base>/YYYY-MM-DD_<safe-name>.
func ProjectPath(base, projectName string, now time.Time) string {
	safe := strings.NewReplacer(" ", "-", "/", "-", `\`, "-").Replace(projectName)
	return filepath.Join(base, now.Format("2006-01-02")+"_"+safe)
}

// SessionDir builds the timestamped session folder inside a project:
// <project>/raw/YYYY-MM-DD HH-MM-SS.
func SessionDir(projectPath string, start time.Time) string {
	return filepath.Join(projectPath, "raw", SessionTimestamp(start))
}

// SessionTimestamp formats a session start time the way folder names use it.
func SessionTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15-04-05")
}

// EnsureDir creates the directory (and parents) if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
