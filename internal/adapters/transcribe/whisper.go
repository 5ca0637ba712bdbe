// Package transcribe shells out to the whisper CLI to produce transcripts of
// recorded videos. Transcription is best-effort: every failure is reported in
// the result, never as an error that aborts a recording flow.
package transcribe

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

// Whisper wraps the openai-whisper command line tool.
type Whisper struct {
	log zerolog.Logger

	lookPath func(file string) (string, error)
	run      func(name string, args ...string) ([]byte, error)
}

func NewWhisper(logger *zerolog.Logger) *Whisper {
	return &Whisper{
		log:      logger.With().Str("component", "transcribe").Logger(),
		lookPath: exec.LookPath,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
	}
}

// Available reports whether the whisper binary is on PATH.
func (w *Whisper) Available() bool {
	_, err := w.lookPath("whisper")
	return err == nil
}

// Transcribe runs whisper against videoPath using the configured model and
// language, writing the transcript next to the video. progress, if non-nil,
// receives coarse status strings.
func (w *Whisper) Transcribe(videoPath string, cfg domain.TranscriptionConfig, progress func(string)) domain.TranscriptionResult {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	if !w.Available() {
		w.log.Warn().Msg("whisper not found on PATH, skipping transcription")
		return domain.TranscriptionResult{Message: "whisper is not installed (pip install openai-whisper)"}
	}

	outDir := filepath.Dir(videoPath)
	args := []string{
		videoPath,
		"--model", cfg.Model,
		"--language", cfg.Language,
		"--output_dir", outDir,
		"--output_format", "txt",
	}

	w.log.Info().Str("video", videoPath).Str("model", cfg.Model).Msg("transcribing")
	report(fmt.Sprintf("transcribing %s with model %s", filepath.Base(videoPath), cfg.Model))

	out, err := w.run("whisper", args...)
	if err != nil {
		w.log.Error().Err(err).Str("output", tail(string(out))).Msg("transcription failed")
		return domain.TranscriptionResult{Message: fmt.Sprintf("whisper failed: %v", err)}
	}

	transcript := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".txt"
	w.log.Info().Str("transcript", transcript).Msg("transcription complete")
	report("transcription complete")
	return domain.TranscriptionResult{Success: true, OutputPath: transcript, Message: "transcription complete"}
}

// tail keeps error logs readable when whisper dumps its whole progress bar.
func tail(s string) string {
	const max = 400
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
