// Package pipeline drives type iteration with checkpointed resume: a
// single Driver parameterized by two callbacks instead of an inheritance
// hierarchy of analyzers. Shared state (filters, the checkpoint) belongs
// to the Driver, never to a parent type.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/antikythera/planner/internal/astsource"
)

// Filters restrict which resolved types the Driver visits.
type Filters struct {
	TargetClass string // if non-empty, only this FQN is processed
	SkipClass   string // if non-empty, this FQN is skipped
}

// Driver runs the template method over every resolved type the Runtime
// exposes, in the Runtime's own iteration order.
type Driver struct {
	Runtime        astsource.Runtime
	CheckpointPath string
	Filters        Filters
	Logger         zerolog.Logger

	// Matches reports whether ty is the kind of type this Driver analyzes
	// (e.g. "is a repository", "is an entity").
	Matches func(ty astsource.ResolvedType) bool

	// Analyze runs the subtype-specific analysis for one matching type.
	// Its return value is opaque to the Driver; Run collects it via
	// results for the caller.
	Analyze func(ty astsource.ResolvedType, cp *Checkpoint) (any, error)

	// AfterLoop runs once after every type has been visited (e.g. the
	// normalization planner's batch LLM call and artifact generation).
	// May be nil.
	AfterLoop func(cp *Checkpoint, results []any) error

	// RestoreFromCheckpoint lets a subtype repopulate its own accumulator
	// state from a loaded checkpoint before the loop starts. May be nil.
	RestoreFromCheckpoint func(cp Checkpoint)

	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte, os.FileMode) error
	rename    func(string, string) error
	remove    func(string) error
	now       func() time.Time
}

// NewDriver returns a Driver with the real filesystem wired in.
func NewDriver(runtime astsource.Runtime, checkpointPath string, filters Filters, logger zerolog.Logger) *Driver {
	return &Driver{
		Runtime:        runtime,
		CheckpointPath: checkpointPath,
		Filters:        filters,
		Logger:         logger,
		readFile:       os.ReadFile,
		writeFile:      os.WriteFile,
		rename:         os.Rename,
		remove:         os.Remove,
		now:            time.Now,
	}
}

// Run executes the template: load the checkpoint, visit every matching
// unprocessed type, persist progress after each, then the AfterLoop hook
// and checkpoint removal.
func (d *Driver) Run() ([]any, error) {
	cp, err := loadCheckpoint(d.CheckpointPath, d.readFile)
	if err != nil {
		return nil, err
	}
	if d.RestoreFromCheckpoint != nil {
		d.RestoreFromCheckpoint(cp)
	}

	processed := processedSet{}
	for _, fqn := range cp.Processed {
		processed[fqn] = true
	}

	var results []any
	for fqn, ty := range d.Runtime.ResolvedTypes() {
		if processed[fqn] {
			continue
		}
		if d.Filters.TargetClass != "" && fqn != d.Filters.TargetClass {
			continue
		}
		if d.Filters.SkipClass != "" && fqn == d.Filters.SkipClass {
			continue
		}
		if !d.Matches(ty) {
			continue
		}

		result, err := d.Analyze(ty, &cp)
		if err != nil {
			// Per-type analysis failure: logged, marked processed to avoid
			// infinite retries, pipeline continues.
			d.Logger.Warn().Str("fqn", fqn).Err(err).Msg("per-type analysis failed, marking processed")
		} else {
			results = append(results, result)
		}

		processed[fqn] = true
		cp.Processed = append(cp.Processed, fqn)
		cp.Timestamp = d.now()
		if err := saveCheckpoint(d.CheckpointPath, cp, d.writeFile, d.rename); err != nil {
			return results, fmt.Errorf("pipeline: saving checkpoint after %s: %w", fqn, err)
		}
	}

	if d.AfterLoop != nil {
		if err := d.AfterLoop(&cp, results); err != nil {
			return results, fmt.Errorf("pipeline: afterLoop hook: %w", err)
		}
	}

	if err := deleteCheckpoint(d.CheckpointPath, d.remove); err != nil {
		return results, err
	}
	return results, nil
}
