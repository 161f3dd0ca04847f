package population

import "sort"

// SortByBirth orders ids by birth time ascending, breaking ties by handle.
func (a *Arena) SortByBirth(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		bi, bj := a.individuals[ids[i]].birth, a.individuals[ids[j]].birth
		if bi != bj {
			return bi < bj
		}
		return ids[i] < ids[j]
	})
}

// Snapshot returns the members of sets as a new slice ordered by birth time.
func (a *Arena) Snapshot(sets ...*Set) []ID {
	n := 0
	for _, s := range sets {
		n += s.Len()
	}
	out := make([]ID, 0, n)
	for _, s := range sets {
		out = append(out, s.ids...)
	}
	a.SortByBirth(out)
	return out
}
