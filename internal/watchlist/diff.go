package watchlist

import "sort"

// Diff is the membership change between two snapshots, grouped by source.
type Diff struct {
	Added   map[string][]string
	Removed map[string][]string

	// source order of first appearance, for stable output
	addedOrder   []string
	removedOrder []string
}

func (d Diff) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// Count returns the number of added and removed names.
func (d Diff) Count() (added, removed int) {
	for _, names := range d.Added {
		added += len(names)
	}
	for _, names := range d.Removed {
		removed += len(names)
	}
	return added, removed
}

// AddedSources lists the sources with additions in output order.
func (d Diff) AddedSources() []string { return sourcesOf(d.Added, d.addedOrder) }

// RemovedSources lists the sources with removals in output order.
func (d Diff) RemovedSources() []string { return sourcesOf(d.Removed, d.removedOrder) }

// Sources lists every source touched by the diff: added sources first, then
// sources that only had removals.
func (d Diff) Sources() []string {
	added := d.AddedSources()
	out := append([]string(nil), added...)
	seen := make(map[string]struct{}, len(added))
	for _, s := range added {
		seen[s] = struct{}{}
	}
	for _, s := range d.RemovedSources() {
		if _, ok := seen[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func sourcesOf(m map[string][]string, order []string) []string {
	if len(order) == len(m) {
		return order
	}
	// Diff built by hand (tests, callers): fall back to map keys in sorted order.
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type named struct {
	source string
	seen   bool
}

// Compare returns the names added in cur and removed from prev.
//
// Identity is the name alone. A name listed under a different source in the
// two snapshots is neither added nor removed. When a snapshot lists the same
// name more than once, the last occurrence decides its source; which source
// wins is therefore up to the upstream ordering.
//
// Added names keep cur's order, removed names keep prev's order.
func Compare(prev, cur Snapshot) Diff {
	prevIdx := index(prev)
	curIdx := index(cur)

	d := Diff{Added: map[string][]string{}, Removed: map[string][]string{}}
	d.addedOrder = collect(cur, curIdx, prevIdx, d.Added)
	d.removedOrder = collect(prev, prevIdx, curIdx, d.Removed)
	return d
}

func index(s Snapshot) map[string]*named {
	m := make(map[string]*named, len(s.Entries))
	for _, e := range s.Entries {
		if n, ok := m[e.Name]; ok {
			n.source = e.Source
			continue
		}
		m[e.Name] = &named{source: e.Source}
	}
	return m
}

// collect appends every name of s that is absent from other into out, under
// the source recorded in own. Each name is emitted once, at its first position.
func collect(s Snapshot, own, other map[string]*named, out map[string][]string) []string {
	var order []string
	for _, e := range s.Entries {
		if _, ok := other[e.Name]; ok {
			continue
		}
		n := own[e.Name]
		if n.seen {
			continue
		}
		n.seen = true
		if _, ok := out[n.source]; !ok {
			order = append(order, n.source)
		}
		out[n.source] = append(out[n.source], e.Name)
	}
	return order
}
