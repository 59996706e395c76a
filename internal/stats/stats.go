// Package stats accumulates in-memory per-repository counters and
// flushes them as CSV rows. Single-process, append-only, no locking:
// concurrent runs may interleave rows, which is an accepted limitation,
// not a bug.
package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// Header is the stats CSV header row.
var Header = []string{
	"timestamp", "repository_class", "queries_analyzed", "query_annotations_changed",
	"method_signatures_changed", "method_calls_updated", "dependent_classes_modified",
	"liquibase_indexes_generated",
}

// Counters holds one repository's run counters.
type Counters struct {
	QueriesAnalyzed          int
	QueryAnnotationsChanged  int
	MethodSignaturesChanged  int
	MethodCallsUpdated       int
	DependentClassesModified int
	IndexesGenerated         int
}

// Recorder accumulates Counters per repository FQN for the duration of one
// run, in completion order, and flushes rows to a CSV file.
type Recorder struct {
	path  string
	order []string
	byFQN map[string]Counters
	now   func() time.Time
}

// New returns a Recorder writing to path.
func New(path string) *Recorder {
	return &Recorder{path: path, byFQN: map[string]Counters{}, now: time.Now}
}

// Record attaches counters to fqn, in the order Record is first called for
// each FQN; row order equals completion order.
func (r *Recorder) Record(fqn string, c Counters) {
	if _, ok := r.byFQN[fqn]; !ok {
		r.order = append(r.order, fqn)
	}
	r.byFQN[fqn] = c
}

// Flush appends one row per recorded repository to the CSV file, writing
// the header first if the file doesn't yet exist.
func (r *Recorder) Flush() error {
	needsHeader := true
	if _, err := os.Stat(r.path); err == nil {
		needsHeader = false
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("stats: opening %s: %w", r.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("stats: writing header: %w", err)
		}
	}

	ts := r.now().Format(time.RFC3339)
	for _, fqn := range r.order {
		c := r.byFQN[fqn]
		row := []string{
			ts, fqn,
			itoa(c.QueriesAnalyzed), itoa(c.QueryAnnotationsChanged),
			itoa(c.MethodSignaturesChanged), itoa(c.MethodCallsUpdated),
			itoa(c.DependentClassesModified), itoa(c.IndexesGenerated),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("stats: writing row for %s: %w", fqn, err)
		}
	}
	w.Flush()
	return w.Error()
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
