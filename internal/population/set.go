package population

// Set is an insertion-indexed set of handles. Add, Remove and Contains are
// O(1); removal swaps the last element into the vacated slot, so the element
// order depends only on the sequence of operations, which keeps uniform
// random draws reproducible under a fixed seed.
type Set struct {
	ids   []ID
	index map[ID]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{index: make(map[ID]int)}
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.ids) }

// Contains reports whether id is a member.
func (s *Set) Contains(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Add inserts id. It reports false if id was already present.
func (s *Set) Add(id ID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id. It reports false if id was absent.
func (s *Set) Remove(id ID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	if i != last {
		moved := s.ids[last]
		s.ids[i] = moved
		s.index[moved] = i
	}
	s.ids = s.ids[:last]
	delete(s.index, id)
	return true
}

// At returns the i-th member in set order.
func (s *Set) At(i int) ID { return s.ids[i] }

// IDs returns a copy of the members in set order.
func (s *Set) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}
