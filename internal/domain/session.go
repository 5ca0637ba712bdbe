package domain

import (
	"path/filepath"
	"time"
)

// RecordingState is the session state machine state.
type RecordingState string

const (
	StateIdle      RecordingState = "idle"
	StateStarting  RecordingState = "starting"
	StateRecording RecordingState = "recording"
	StateStopping  RecordingState = "stopping"
)

// SessionInfo describes the recording session currently in flight. It is
// created at start, destroyed at stop, and never persisted.
type SessionInfo struct {
	ID          string
	ProjectName string
	ProjectPath string
	SessionPath string
	ProfileName string
	SceneName   string
	StartTime   time.Time
}

// RawDir is the project's raw recordings folder.
func (s SessionInfo) RawDir() string { return filepath.Join(s.ProjectPath, "raw") }

// ExportsDir is the project's exports folder.
func (s SessionInfo) ExportsDir() string { return filepath.Join(s.ProjectPath, "exports") }

// ProjectMetadata is the per-project metadata.json document.
type ProjectMetadata struct {
	ProjectName string   `json:"projectName"`
	DateCreated string   `json:"dateCreated"`
	Recordings  []string `json:"recordings"`
}

// ProjectSummary is a listing entry for an existing project folder.
type ProjectSummary struct {
	Path string
	Name string
	Date string
}
