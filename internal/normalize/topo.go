package normalize

import "strings"

// CreateOrder topologically sorts newTables so that every FK's toTable
// (the referenced, parent table) precedes its fromTable (the referencing,
// child table): the order CREATE TABLE statements must run in. Ties are
// broken by first-seen position in newTables,
// using Kahn's algorithm so the result is deterministic across runs.
func CreateOrder(newTables []string, fks []ForeignKey) []string {
	return kahn(newTables, fks, false)
}

// JoinOrder is CreateOrder reversed: children before parents, the order
// the compatibility view's FROM/JOIN clause walks the new tables in
// for building the compatibility view's JOIN chain.
func JoinOrder(newTables []string, fks []ForeignKey) []string {
	return kahn(newTables, fks, true)
}

// kahn computes a topological order over newTables using the
// parent-before-child edge toTable -> fromTable. reverseResult flips the
// computed order to child-before-parent without changing the tie-break
// logic, so CreateOrder and JoinOrder always agree on relative order
// between any two genuinely ordered tables.
func kahn(newTables []string, fks []ForeignKey, reverseResult bool) []string {
	firstSeen := map[string]int{}
	lower := make([]string, len(newTables))
	for i, t := range newTables {
		key := strings.ToLower(t)
		lower[i] = key
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = i
		}
	}

	// edge: toTable must precede fromTable.
	children := map[string][]string{} // toTable -> []fromTable
	inDegree := map[string]int{}
	for _, t := range lower {
		inDegree[t] = 0
	}
	for _, fk := range fks {
		from := strings.ToLower(fk.FromTable)
		to := strings.ToLower(fk.ToTable)
		children[to] = append(children[to], from)
		inDegree[from]++
	}

	remaining := map[string]bool{}
	for _, t := range lower {
		remaining[t] = true
	}

	var order []string
	for len(order) < len(lower) {
		next := ""
		nextPos := -1
		for t := range remaining {
			if inDegree[t] != 0 {
				continue
			}
			if nextPos == -1 || firstSeen[t] < nextPos {
				next = t
				nextPos = firstSeen[t]
			}
		}
		if next == "" {
			// Cycle; Validate should have caught this. Fall back to
			// first-seen order over whatever remains so callers never
			// see a short result.
			for _, t := range lower {
				if remaining[t] {
					order = append(order, t)
				}
			}
			break
		}
		order = append(order, next)
		delete(remaining, next)
		for _, child := range children[next] {
			inDegree[child]--
		}
	}

	if reverseResult {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	// Restore the caller's original casing for readability downstream.
	byLower := map[string]string{}
	for _, t := range newTables {
		byLower[strings.ToLower(t)] = t
	}
	out := make([]string, len(order))
	for i, t := range order {
		out[i] = byLower[t]
	}
	return out
}
