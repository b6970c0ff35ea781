package downloader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bilidl/bilidl/pkg/progress"
)

// Journal persists each task's DownloadProgress as a single JSON document
// under <app_data>/<hidden task dir>/<task_id>.json — spec.md §4.1 (C1).
type Journal struct {
	dir    string
	logger *slog.Logger
}

// NewJournal creates a journal rooted at dir (the hidden task directory).
func NewJournal(dir string, logger *slog.Logger) *Journal {
	return &Journal{dir: dir, logger: logger}
}

func (j *Journal) path(taskID string) string {
	return filepath.Join(j.dir, taskID+".json")
}

// Save serializes p with stable field order (struct field order, which
// encoding/json preserves) and replaces the file whole. It writes to a
// temp file in the same directory and renames over the target, so a crash
// mid-write yields either the previous or the new bytes — the write-temp-
// then-rename resolution of the §9 open question about journal atomicity.
//
// I/O errors here are logged and returned, but callers must not abort the
// download loop on failure: the in-memory progress remains authoritative
// per spec.md §4.1's failure semantics.
func (j *Journal) Save(p *progress.DownloadProgress, createDir bool) error {
	if createDir {
		if err := os.MkdirAll(j.dir, 0o755); err != nil {
			j.logger.Error("failed to create journal dir", "error", err)
			return fmt.Errorf("failed to create journal dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		j.logger.Error("failed to marshal progress", "task_id", p.TaskID, "error", err)
		return fmt.Errorf("failed to marshal progress for %s: %w", p.TaskID, err)
	}

	tmp, err := os.CreateTemp(j.dir, p.TaskID+".*.tmp")
	if err != nil {
		j.logger.Error("failed to create temp journal file", "task_id", p.TaskID, "error", err)
		return fmt.Errorf("failed to create temp journal file for %s: %w", p.TaskID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		j.logger.Error("failed to write journal", "task_id", p.TaskID, "error", err)
		return fmt.Errorf("failed to write journal for %s: %w", p.TaskID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp journal file for %s: %w", p.TaskID, err)
	}
	if err := os.Rename(tmpName, j.path(p.TaskID)); err != nil {
		_ = os.Remove(tmpName)
		j.logger.Error("failed to rename journal into place", "task_id", p.TaskID, "error", err)
		return fmt.Errorf("failed to rename journal for %s: %w", p.TaskID, err)
	}
	return nil
}

// Delete best-effort removes <task_id>.json; absence is not an error.
func (j *Journal) Delete(taskID string) error {
	if err := os.Remove(j.path(taskID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal for %s: %w", taskID, err)
	}
	return nil
}

// RestoreAll scans the task directory. Any entry whose extension isn't
// .json, or whose contents fail to parse, is deleted (recoverable per
// spec.md §4.1). Duplicate task_ids across files keep the newer load; the
// caller is expected to cancel whichever in-memory owner held the older one.
func (j *Journal) RestoreAll() (map[string]*progress.DownloadProgress, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*progress.DownloadProgress{}, nil
		}
		return nil, fmt.Errorf("failed to read journal dir: %w", err)
	}

	type loaded struct {
		p       *progress.DownloadProgress
		modTime int64
	}
	byID := make(map[string]loaded)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(j.dir, name)

		if !strings.HasSuffix(name, ".json") {
			j.logger.Warn("removing unowned file in task dir", "file", name)
			_ = os.Remove(full)
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			j.logger.Warn("failed to read journal file, removing", "file", name, "error", err)
			_ = os.Remove(full)
			continue
		}

		var p progress.DownloadProgress
		if err := json.Unmarshal(data, &p); err != nil {
			j.logger.Warn("failed to parse journal file, removing", "file", name, "error", err)
			_ = os.Remove(full)
			continue
		}

		info, statErr := e.Info()
		var modTime int64
		if statErr == nil {
			modTime = info.ModTime().UnixNano()
		}

		if existing, ok := byID[p.TaskID]; ok && existing.modTime > modTime {
			continue
		}
		byID[p.TaskID] = loaded{p: &p, modTime: modTime}
	}

	out := make(map[string]*progress.DownloadProgress, len(byID))
	for id, l := range byID {
		out[id] = l.p
	}
	return out, nil
}
