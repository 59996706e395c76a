package pipeline

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/antikythera/planner/internal/astsource"
)

type fakeRuntime struct {
	types map[string]astsource.ResolvedType
}

func (f *fakeRuntime) ResolvedTypes() map[string]astsource.ResolvedType { return f.types }
func (f *fakeRuntime) CompilationUnit(fqn string) (astsource.CompilationUnit, bool) {
	return astsource.CompilationUnit{}, false
}
func (f *fakeRuntime) FindSubClasses(fqn string) []string { return nil }

func newTestDriver(t *testing.T, runtime astsource.Runtime, checkpointPath string) *Driver {
	t.Helper()
	d := NewDriver(runtime, checkpointPath, Filters{}, zerolog.Nop())
	return d
}

func TestDriver_ProcessesAllMatchingTypes(t *testing.T) {
	runtime := &fakeRuntime{types: map[string]astsource.ResolvedType{
		"com.example.A": {FQN: "com.example.A", IsRepository: true},
		"com.example.B": {FQN: "com.example.B", IsRepository: true},
		"com.example.C": {FQN: "com.example.C", IsEntity: true},
	}}
	d := newTestDriver(t, runtime, t.TempDir()+"/checkpoint.json")
	d.Matches = func(ty astsource.ResolvedType) bool { return ty.IsRepository }

	var seen []string
	d.Analyze = func(ty astsource.ResolvedType, cp *Checkpoint) (any, error) {
		seen = append(seen, ty.FQN)
		return ty.FQN, nil
	}

	results, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if len(seen) != 2 {
		t.Fatalf("expected entity type to be skipped, got %+v", seen)
	}
}

func TestDriver_CheckspointDeletedOnCleanCompletion(t *testing.T) {
	path := t.TempDir() + "/checkpoint.json"
	runtime := &fakeRuntime{types: map[string]astsource.ResolvedType{
		"com.example.A": {FQN: "com.example.A", IsRepository: true},
	}}
	d := newTestDriver(t, runtime, path)
	d.Matches = func(ty astsource.ResolvedType) bool { return true }
	d.Analyze = func(ty astsource.ResolvedType, cp *Checkpoint) (any, error) { return nil, nil }

	if _, err := d.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected checkpoint file to be deleted, stat err = %v", err)
	}
}

// A checkpoint left behind by an interrupted run is honored on the
// next run: already-processed FQNs are skipped, and the final processed
// set is the union of both runs.
func TestDriver_CheckpointResume(t *testing.T) {
	path := t.TempDir() + "/checkpoint.json"
	seedCP := Checkpoint{Version: 1, Processed: []string{"com.example.A"}, Timestamp: time.Now()}
	data, err := json.Marshal(seedCP)
	if err != nil {
		t.Fatalf("marshal seed checkpoint: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write seed checkpoint: %v", err)
	}

	runtime := &fakeRuntime{types: map[string]astsource.ResolvedType{
		"com.example.A": {FQN: "com.example.A", IsRepository: true},
		"com.example.B": {FQN: "com.example.B", IsRepository: true},
	}}
	d := newTestDriver(t, runtime, path)
	d.Matches = func(ty astsource.ResolvedType) bool { return true }
	var seen []string
	d.Analyze = func(ty astsource.ResolvedType, cp *Checkpoint) (any, error) {
		seen = append(seen, ty.FQN)
		return ty.FQN, nil
	}

	results, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 1 || seen[0] != "com.example.B" {
		t.Fatalf("expected only com.example.B to be (re-)analyzed, got %+v", seen)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %+v", results)
	}
}
