package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based
// persistence. Results live in a directory per fit:
// <baseDir>/fits/<id>/result.json plus trace.jsonl.gz.
//
// Thread-safety: writes go through a temp file + atomic rename and need
// no locks. Multiple goroutines can safely call methods concurrently.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store. The baseDir is
// created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// fitDir returns the directory path for a given result ID.
func (fs *FSStore) fitDir(id string) string {
	return filepath.Join(fs.baseDir, "fits", id)
}

// resultPath returns the path to the result.json file for a fit.
func (fs *FSStore) resultPath(id string) string {
	return filepath.Join(fs.fitDir(id), "result.json")
}

// SaveResult atomically persists a fit result using the temp file +
// rename pattern.
func (fs *FSStore) SaveResult(result *FitResult) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if err := result.Validate(); err != nil {
		return err
	}

	dir := fs.fitDir(result.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	tempPath := fs.resultPath(result.ID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	finalPath := fs.resultPath(result.ID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Fit result saved", "id", result.ID, "path", finalPath)
	return nil
}

// LoadResult retrieves the result with the given ID.
func (fs *FSStore) LoadResult(id string) (*FitResult, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	path := fs.resultPath(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat result file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result FitResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize result: %w", err)
	}

	return &result, nil
}

// ListResults returns metadata for all stored results.
func (fs *FSStore) ListResults() ([]ResultInfo, error) {
	fitsDir := filepath.Join(fs.baseDir, "fits")

	if _, err := os.Stat(fitsDir); os.IsNotExist(err) {
		return []ResultInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat fits directory: %w", err)
	}

	entries, err := os.ReadDir(fitsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fits directory: %w", err)
	}

	var infos []ResultInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		result, err := fs.LoadResult(entry.Name())
		if err != nil {
			slog.Warn("Failed to load result for listing", "id", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, result.ToInfo())
	}

	return infos, nil
}

// DeleteResult removes the result directory and everything in it,
// including the trace.
func (fs *FSStore) DeleteResult(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	dir := fs.fitDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat result directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove result directory: %w", err)
	}

	slog.Debug("Fit result deleted", "id", id, "path", dir)
	return nil
}

// FindByFingerprint scans stored results for a matching input
// fingerprint. The scan is linear; result counts stay small.
func (fs *FSStore) FindByFingerprint(fingerprint string) (*FitResult, error) {
	if fingerprint == "" {
		return nil, fmt.Errorf("fingerprint cannot be empty")
	}

	infos, err := fs.ListResults()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Fingerprint == fingerprint {
			return fs.LoadResult(info.ID)
		}
	}
	return nil, &NotFoundError{}
}

// SaveTrace persists the evaluation history for a result, replacing
// any previous trace.
func (fs *FSStore) SaveTrace(id string, entries []TraceEntry) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	tw, err := NewTraceWriter(fs.baseDir, id)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := tw.Write(entry); err != nil {
			tw.Close()
			return err
		}
	}
	return tw.Close()
}

// LoadTrace retrieves the evaluation history for a result.
func (fs *FSStore) LoadTrace(id string) ([]TraceEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}
	return ReadTrace(fs.baseDir, id)
}
