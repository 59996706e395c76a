// Package indexsuggest accumulates index demands across many
// AnalysisResults into a deduplicated proposal set, applying the
// prefix-covering rules both as candidates arrive and as a final
// cleanup pass before emission.
package indexsuggest

import (
	"strings"

	"github.com/antikythera/planner/internal/catalog"
	"github.com/antikythera/planner/internal/queryanalysis"
)

// defaultMaxIndexColumns and the clamp range for the configured cap.
const (
	defaultMaxIndexColumns = 4
	minIndexColumns        = 1
	maxIndexColumnsCap     = 16
)

// clampMaxIndexColumns keeps the configured cap inside the valid range.
func clampMaxIndexColumns(n int) int {
	if n <= 0 {
		return defaultMaxIndexColumns
	}
	if n < minIndexColumns {
		return minIndexColumns
	}
	if n > maxIndexColumnsCap {
		return maxIndexColumnsCap
	}
	return n
}

// ProposalSet holds two ordered, deduplicated key sets. Keys are
// lower-cased "table|column" (single) or "table|c1,c2,..." (multi).
type ProposalSet struct {
	singleOrder []string
	single      map[string]bool
	multiOrder  []string
	multi       map[string]bool
}

func newProposalSet() *ProposalSet {
	return &ProposalSet{single: map[string]bool{}, multi: map[string]bool{}}
}

// Singles returns the accepted single-column keys in insertion order.
func (p *ProposalSet) Singles() []string {
	out := make([]string, len(p.singleOrder))
	copy(out, p.singleOrder)
	return out
}

// Multis returns the accepted multi-column keys in insertion order.
func (p *ProposalSet) Multis() []string {
	out := make([]string, len(p.multiOrder))
	copy(out, p.multiOrder)
	return out
}

func (p *ProposalSet) addSingle(key string) {
	if !p.single[key] {
		p.single[key] = true
		p.singleOrder = append(p.singleOrder, key)
	}
}

func (p *ProposalSet) addMulti(key string) {
	if !p.multi[key] {
		p.multi[key] = true
		p.multiOrder = append(p.multiOrder, key)
	}
}

func (p *ProposalSet) removeSingle(key string) {
	delete(p.single, key)
	p.singleOrder = removeFromSlice(p.singleOrder, key)
}

func (p *ProposalSet) removeMulti(key string) {
	delete(p.multi, key)
	p.multiOrder = removeFromSlice(p.multiOrder, key)
}

func removeFromSlice(list []string, key string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != key {
			out = append(out, v)
		}
	}
	return out
}

func splitKey(key string) (table string, cols []string) {
	t, rest, ok := strings.Cut(key, "|")
	if !ok {
		return "", nil
	}
	return t, strings.Split(rest, ",")
}

// SplitKey decomposes a proposal key ("table|c1,c2,...") back into its
// table and column list, for callers that turn accepted proposals into
// changesets.
func SplitKey(key string) (table string, cols []string) {
	return splitKey(key)
}

func makeKey(table string, cols []string) string {
	return strings.ToLower(table) + "|" + strings.ToLower(strings.Join(cols, ","))
}

// Aggregator accumulates demands across AnalysisResults and maintains the
// covering invariants incrementally.
type Aggregator struct {
	cat             *catalog.IndexCatalog
	maxIndexColumns int
	proposals       *ProposalSet
}

// New returns an Aggregator. cat may be nil (the existing-catalog check
// becomes a no-op).
func New(cat *catalog.IndexCatalog, maxIndexColumns int) *Aggregator {
	return &Aggregator{
		cat:             cat,
		maxIndexColumns: clampMaxIndexColumns(maxIndexColumns),
		proposals:       newProposalSet(),
	}
}

// Add consumes one AnalysisResult's index demands: group by table in
// first-seen order, dedup within the table, then accept as a multi or a
// single candidate.
func (a *Aggregator) Add(result queryanalysis.AnalysisResult) {
	groups := map[string][]string{}
	var tableOrder []string
	seen := map[string]map[string]bool{}

	for _, d := range result.IndexDemands {
		table := strings.ToLower(d.Table)
		col := strings.ToLower(d.Column)
		if seen[table] == nil {
			seen[table] = map[string]bool{}
			tableOrder = append(tableOrder, table)
		}
		if seen[table][col] {
			continue
		}
		seen[table][col] = true
		groups[table] = append(groups[table], col)
	}

	for _, table := range tableOrder {
		cols := groups[table]
		if len(cols) >= 2 {
			if len(cols) > a.maxIndexColumns {
				cols = cols[:a.maxIndexColumns]
			}
			a.acceptMulti(table, cols)
		} else if len(cols) == 1 {
			a.acceptSingle(table, cols[0])
		}
	}
}

// acceptSingle rejects a candidate the catalog or an accepted multi
// already covers.
func (a *Aggregator) acceptSingle(table, column string) {
	key := makeKey(table, []string{column})
	if a.catalogCovers(table, []string{column}) {
		return
	}
	for _, mkey := range a.proposals.multiOrder {
		mt, mcols := splitKey(mkey)
		if strings.EqualFold(mt, table) && len(mcols) > 0 && strings.EqualFold(mcols[0], column) {
			return // covered by an accepted multi's leading column
		}
	}
	a.proposals.addSingle(key)
}

// acceptMulti rejects a candidate an existing index or accepted multi
// covers, then evicts anything the candidate itself covers.
func (a *Aggregator) acceptMulti(table string, cols []string) {
	key := makeKey(table, cols)
	if a.catalogCovers(table, cols) {
		return
	}
	for _, mkey := range a.proposals.multiOrder {
		mt, mcols := splitKey(mkey)
		if !strings.EqualFold(mt, table) {
			continue
		}
		if isPrefix(cols, mcols) { // an accepted multi already covers this candidate
			return
		}
	}
	// Remove any accepted multi this candidate covers.
	for _, mkey := range append([]string(nil), a.proposals.multiOrder...) {
		mt, mcols := splitKey(mkey)
		if strings.EqualFold(mt, table) && isPrefix(mcols, cols) && mkey != key {
			a.proposals.removeMulti(mkey)
		}
	}
	a.proposals.addMulti(key)
	// Remove any accepted single on this table whose column is the
	// new multi's leading column.
	if len(cols) > 0 {
		leadKey := makeKey(table, []string{cols[0]})
		a.proposals.removeSingle(leadKey)
	}
}

// Restore repopulates the accepted sets from a checkpoint's singleIndexes
// and multiIndexes arrays. Keys pass through the same covering rules as
// live candidates, so a checkpoint written by an older run with a
// different catalog still converges to a valid set.
func (a *Aggregator) Restore(singles, multis []string) {
	for _, key := range multis {
		table, cols := splitKey(key)
		if table == "" || len(cols) == 0 {
			continue
		}
		a.acceptMulti(table, cols)
	}
	for _, key := range singles {
		table, cols := splitKey(key)
		if table == "" || len(cols) != 1 {
			continue
		}
		a.acceptSingle(table, cols[0])
	}
}

// Snapshot returns the currently accepted keys for checkpoint persistence.
// Unlike Finalize it runs no cleanup pass, so a restored run reproduces
// the exact in-flight state.
func (a *Aggregator) Snapshot() (singles, multis []string) {
	return a.proposals.Singles(), a.proposals.Multis()
}

func (a *Aggregator) catalogCovers(table string, cols []string) bool {
	if a.cat == nil {
		return false
	}
	return a.cat.HasIndexCoveringColumns(table, cols)
}

// isPrefix reports whether prefix is a (non-strict) column-wise prefix of
// full, case-insensitively.
func isPrefix(prefix, full []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, c := range prefix {
		if !strings.EqualFold(c, full[i]) {
			return false
		}
	}
	return true
}

// Finalize runs the covering rules as a cleanup pass and returns the
// resulting ProposalSet. Safe to call more than once.
func (a *Aggregator) Finalize() *ProposalSet {
	// Pairwise across all accepted multis: drop any multi that is a
	// strict prefix of another on the same table, keeping the longer one.
	multis := append([]string(nil), a.proposals.multiOrder...)
	toDrop := map[string]bool{}
	for i, ki := range multis {
		ti, ci := splitKey(ki)
		for j, kj := range multis {
			if i == j || toDrop[ki] {
				continue
			}
			tj, cj := splitKey(kj)
			if strings.EqualFold(ti, tj) && isPrefix(ci, cj) && len(ci) < len(cj) {
				toDrop[ki] = true
			}
		}
	}
	for k := range toDrop {
		a.proposals.removeMulti(k)
	}

	// Drop singles covered by a surviving multi's leading column.
	for _, skey := range append([]string(nil), a.proposals.singleOrder...) {
		st, scols := splitKey(skey)
		if len(scols) == 0 {
			continue
		}
		for _, mkey := range a.proposals.multiOrder {
			mt, mcols := splitKey(mkey)
			if strings.EqualFold(st, mt) && len(mcols) > 0 && strings.EqualFold(mcols[0], scols[0]) {
				a.proposals.removeSingle(skey)
				break
			}
		}
	}

	return a.proposals
}
