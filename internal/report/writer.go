package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/fsutil"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/security"
)

// Paths lists the files written for one run.
type Paths struct {
	Map      string `json:"map"`
	Coverage string `json:"coverage"`
	Summary  string `json:"summary"`
}

// Writer stores run reports under Dir.
type Writer struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewWriter returns a Writer on the real filesystem.
func NewWriter(dir string) *Writer {
	return &Writer{FS: fsutil.OSFileSystem{}, Dir: dir}
}

// Write renders the final map, the coverage chart and a JSON summary for
// sum. Every artefact is named after the session so runs never collide.
func (w *Writer) Write(sum explore.RunSummary, g *arena.Grid, pos arena.Point) (Paths, error) {
	if err := w.FS.MkdirAll(w.Dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create report dir: %w", err)
	}

	var paths Paths
	var err error
	if paths.Map, err = security.ReportPath(w.Dir, sum.SessionID, "-map.png"); err != nil {
		return Paths{}, err
	}
	if paths.Coverage, err = security.ReportPath(w.Dir, sum.SessionID, "-coverage.html"); err != nil {
		return Paths{}, err
	}
	if paths.Summary, err = security.ReportPath(w.Dir, sum.SessionID, "-summary.json"); err != nil {
		return Paths{}, err
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("%s (%.1f%% explored)", sum.SessionID, sum.Explored)
	if err := RenderMap(&buf, g, pos, title); err != nil {
		return Paths{}, err
	}
	if err := w.FS.WriteFile(paths.Map, buf.Bytes(), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", filepath.Base(paths.Map), err)
	}

	buf.Reset()
	if err := CoverageChart(&buf, sum); err != nil {
		return Paths{}, err
	}
	if err := w.FS.WriteFile(paths.Coverage, buf.Bytes(), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", filepath.Base(paths.Coverage), err)
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode summary: %w", err)
	}
	if err := w.FS.WriteFile(paths.Summary, append(data, '\n'), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", filepath.Base(paths.Summary), err)
	}

	monitoring.Logf("report written to %s", w.Dir)
	return paths, nil
}
