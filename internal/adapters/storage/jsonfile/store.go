// Package jsonfile persists the profile configurations and collaborator
// settings as JSON documents under the config directory. Writes are atomic
// (write-then-rename) and external edits to the profile document are picked
// up live through a filesystem watcher.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

const (
	profileConfigsFile      = "profile-configs.json"
	syncConfigFile          = "sync-config.json"
	transcriptionConfigFile = "transcription-config.json"
)

type Store struct {
	log zerolog.Logger
	dir string

	mu            sync.RWMutex
	profiles      map[string]domain.ProfileConfiguration
	syncCfg       domain.SyncConfig
	transcription domain.TranscriptionConfig

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads every settings document from dir, creating the directory
// and default profiles on first run.
func NewStore(dir string, logger *zerolog.Logger, defaultSyncPath string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	s := &Store{
		log: logger.With().Str("component", "store").Logger(),
		dir: dir,
	}
	if err := s.loadProfiles(); err != nil {
		return nil, err
	}
	s.loadSyncConfig(defaultSyncPath)
	s.loadTranscriptionConfig()
	return s, nil
}

func (s *Store) profilesPath() string { return filepath.Join(s.dir, profileConfigsFile) }

func (s *Store) loadProfiles() error {
	data, err := os.ReadFile(s.profilesPath())
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.profiles = map[string]domain.ProfileConfiguration{
			"PC-Single":  domain.DefaultProfileConfiguration("PC-Single"),
			"PC-7CamMic": domain.DefaultProfileConfiguration("PC-7CamMic"),
		}
		s.mu.Unlock()
		s.log.Info().Msg("created default profile configurations")
		return s.saveProfiles()
	}
	if err != nil {
		return fmt.Errorf("read profile configs: %w", err)
	}
	var parsed map[string]domain.ProfileConfiguration
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse profile configs: %w", err)
	}
	s.mu.Lock()
	s.profiles = parsed
	s.mu.Unlock()
	s.log.Info().Int("count", len(parsed)).Msg("loaded profile configurations")
	return nil
}

func (s *Store) saveProfiles() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(s.profilesPath(), data, 0o644); err != nil {
		return fmt.Errorf("write profile configs: %w", err)
	}
	return nil
}

// Profile returns the saved configuration for name.
func (s *Store) Profile(name string) (domain.ProfileConfiguration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.profiles[name]
	return cfg, ok
}

// ProfileNames returns the saved profile names, sorted.
func (s *Store) ProfileNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SaveProfile upserts a profile configuration and persists the document.
func (s *Store) SaveProfile(cfg domain.ProfileConfiguration) error {
	s.mu.Lock()
	s.profiles[cfg.ProfileName] = cfg
	s.mu.Unlock()
	return s.saveProfiles()
}

// DeleteProfile removes a profile configuration and persists the document.
func (s *Store) DeleteProfile(name string) error {
	s.mu.Lock()
	delete(s.profiles, name)
	s.mu.Unlock()
	return s.saveProfiles()
}

func (s *Store) loadSyncConfig(defaultLocalPath string) {
	cfg := domain.DefaultSyncConfig(defaultLocalPath)
	path := filepath.Join(s.dir, syncConfigFile)
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			s.log.Error().Err(err).Msg("failed to parse sync config, using defaults")
			cfg = domain.DefaultSyncConfig(defaultLocalPath)
		}
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = defaultLocalPath
	}
	s.mu.Lock()
	s.syncCfg = cfg
	s.mu.Unlock()
}

func (s *Store) SyncConfig() domain.SyncConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncCfg
}

func (s *Store) SaveSyncConfig(cfg domain.SyncConfig) error {
	s.mu.Lock()
	s.syncCfg = cfg
	s.mu.Unlock()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(s.dir, syncConfigFile), data, 0o644)
}

func (s *Store) loadTranscriptionConfig() {
	cfg := domain.DefaultTranscriptionConfig()
	path := filepath.Join(s.dir, transcriptionConfigFile)
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			s.log.Error().Err(err).Msg("failed to parse transcription config, using defaults")
			cfg = domain.DefaultTranscriptionConfig()
		}
	}
	s.mu.Lock()
	s.transcription = cfg
	s.mu.Unlock()
}

func (s *Store) TranscriptionConfig() domain.TranscriptionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcription
}

func (s *Store) SaveTranscriptionConfig(cfg domain.TranscriptionConfig) error {
	s.mu.Lock()
	s.transcription = cfg
	s.mu.Unlock()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(s.dir, transcriptionConfigFile), data, 0o644)
}

// Watch reloads the profile document when something else writes it (profiles
// are editable by hand between recordings). Call Close to stop.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != profileConfigsFile {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.loadProfiles(); err != nil {
					s.log.Warn().Err(err).Msg("profile config reload failed")
				} else {
					s.log.Debug().Msg("profile configs reloaded")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (s *Store) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		<-s.done
		s.watcher = nil
	}
}
