package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// TraceEntry is one objective evaluation in a fit's cost history.
// Entries are serialized as JSON lines inside trace.jsonl.gz.
type TraceEntry struct {
	// Eval is the 1-based objective evaluation counter.
	Eval int `json:"eval"`

	// Cost is the objective value at this evaluation.
	Cost float64 `json:"cost"`
}

// TraceWriter streams gzip-compressed trace entries for one fit.
// It is safe for concurrent use.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
	path string
}

// NewTraceWriter creates the trace file at
// <baseDir>/fits/<id>/trace.jsonl.gz, truncating any previous trace for
// the same result.
func NewTraceWriter(baseDir, id string) (*TraceWriter, error) {
	dir := filepath.Join(baseDir, "fits", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create result directory: %w", err)
	}

	path := filepath.Join(dir, "trace.jsonl.gz")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	return &TraceWriter{
		file: file,
		gz:   gzip.NewWriter(file),
		path: path,
	}, nil
}

// Path returns the location of the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// Write appends one trace entry. Data stays buffered in the compressor
// until Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}

	if _, err := tw.gz.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if _, err := tw.gz.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush pushes buffered data through the compressor and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.gz.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace compressor: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close finishes the gzip stream and closes the file. The writer cannot
// be used afterwards.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.gz.Close(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to close trace compressor: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// ReadTrace loads the complete trace for a result.
func ReadTrace(baseDir, id string) ([]TraceEntry, error) {
	path := filepath.Join(baseDir, "fits", id, "trace.jsonl.gz")

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace compressor: %w", err)
	}
	defer gz.Close()

	var entries []TraceEntry
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("failed to parse trace line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	return entries, nil
}
