package draft

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Recorder writes timestamped debug artifacts (raw inputs, provider
// responses, undecodable payloads) for offline inspection. All writes are
// best-effort: failures are logged and swallowed so diagnostics can never
// affect draft generation. A nil Recorder discards everything.
type Recorder struct {
	dir string
}

// NewRecorder returns a Recorder writing into dir, or nil when dir is empty
// (debug artifacts disabled).
func NewRecorder(dir string) *Recorder {
	if dir == "" {
		return nil
	}
	return &Recorder{dir: dir}
}

// Record writes data to a timestamped file named after the label.
func (r *Recorder) Record(label string, data []byte) {
	if r == nil {
		return
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		slog.Warn("failed to create debug directory", "dir", r.dir, "error", err)
		return
	}

	name := fmt.Sprintf("%s_%s.txt", time.Now().Format("20060102_150405"), label)
	path := filepath.Join(r.dir, name)

	f, err := os.Create(path)
	if err != nil {
		slog.Warn("failed to create debug artifact", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		slog.Warn("failed to write debug artifact", "path", path, "error", err)
	}
}
