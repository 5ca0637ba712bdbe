package usecase

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmhernandez2525/obs-tutorial-recorder/internal/domain"
)

var videoExtensions = map[string]bool{
	".mov": true,
	".mkv": true,
	".mp4": true,
	".avi": true,
	".flv": true,
}

// OBS prefixes output files with its filename formatting timestamp; strip the
// recognized patterns so collected files keep only the meaningful part.
var timestampPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2} `),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_`),
}

// collectRecordings moves every video file written during the session into
// the session folder. Membership is decided purely by modification time at
// or after the session start; files are not correlated by name.
func (r *Recorder) collectRecordings(session domain.SessionInfo) []string {
	cutoff := session.StartTime.Truncate(time.Second) // file mtimes have second granularity
	var collected []string
	for _, dir := range []string{r.videosDir, session.RawDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if !videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			info, err := e.Info()
			if err != nil || info.ModTime().Before(cutoff) {
				continue
			}
			src := filepath.Join(dir, e.Name())
			dst := filepath.Join(session.SessionPath, cleanFilename(e.Name()))
			if err := moveFile(src, dst); err != nil {
				r.log.Warn().Err(err).Str("file", src).Msg("could not collect recording")
				continue
			}
			r.log.Info().Str("file", dst).Msg("collected recording")
			r.metrics.CollectedFilesTotal.Inc()
			collected = append(collected, dst)
		}
	}
	return collected
}

// cleanFilename strips a leading OBS timestamp prefix when present.
func cleanFilename(name string) string {
	for _, re := range timestampPrefixes {
		if stripped := re.ReplaceAllString(name, ""); stripped != name && stripped != "" {
			return stripped
		}
	}
	return name
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
