package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// checkpointVersion is bumped only if the file format changes incompatibly.
const checkpointVersion = 1

// Checkpoint is the resume state written after every processed type.
type Checkpoint struct {
	Version       int       `json:"version"`
	Processed     []string  `json:"processed"`
	SingleIndexes []string  `json:"singleIndexes"`
	MultiIndexes  []string  `json:"multiIndexes"`
	Timestamp     time.Time `json:"timestamp"`
}

// processedSet is a lookup view over Checkpoint.Processed, rebuilt after
// load and kept in sync by MarkProcessed.
type processedSet map[string]bool

// loadCheckpoint reads path if present; a missing file is not an error
// and yields a zero-value Checkpoint.
func loadCheckpoint(path string, readFile func(string) ([]byte, error)) (Checkpoint, error) {
	data, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{Version: checkpointVersion}, nil
		}
		return Checkpoint{}, fmt.Errorf("pipeline: reading checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("pipeline: parsing checkpoint: %w", err)
	}
	return cp, nil
}

// saveCheckpoint writes cp durably: a temp file plus rename, so a crash
// mid-write leaves either the old or the new full file.
func saveCheckpoint(path string, cp Checkpoint, writeFile func(string, []byte, os.FileMode) error, rename func(string, string) error) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshaling checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: writing temp checkpoint: %w", err)
	}
	if err := rename(tmp, path); err != nil {
		return fmt.Errorf("pipeline: renaming temp checkpoint: %w", err)
	}
	return nil
}

// deleteCheckpoint removes path on clean completion. A missing file is
// not an error.
func deleteCheckpoint(path string, remove func(string) error) error {
	if err := remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pipeline: deleting checkpoint: %w", err)
	}
	return nil
}
