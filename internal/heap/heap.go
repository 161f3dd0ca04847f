// Package heap provides a generic binary min-heap with stable ordering of
// equal-priority items and removal of arbitrary elements.
package heap

import (
	"container/heap"
)

// Less reports whether a must be extracted before b.
type Less[T any] func(a, b T) bool

// entry pairs an item with its insertion sequence number. The sequence number
// breaks ties between items the comparator considers equal, so extraction
// order only depends on insertion order.
type entry[T any] struct {
	item T
	seq  uint64
}

// PriorityHeap is a binary min-heap ordered by a caller-supplied comparator.
// It is not safe for concurrent use.
type PriorityHeap[T comparable] struct {
	items entries[T]
	next  uint64
}

// New creates an empty heap ordered by less.
func New[T comparable](less Less[T]) *PriorityHeap[T] {
	return &PriorityHeap[T]{items: entries[T]{less: less}}
}

// Len returns the number of items in the heap.
func (h *PriorityHeap[T]) Len() int {
	return len(h.items.data)
}

// IsEmpty reports whether the heap holds no items.
func (h *PriorityHeap[T]) IsEmpty() bool {
	return len(h.items.data) == 0
}

// Insert adds item to the heap in O(log n).
func (h *PriorityHeap[T]) Insert(item T) {
	heap.Push(&h.items, entry[T]{item: item, seq: h.next})
	h.next++
}

// InsertAll adds every item, in order. Equivalent to repeated Insert calls.
func (h *PriorityHeap[T]) InsertAll(items ...T) {
	for _, item := range items {
		h.Insert(item)
	}
}

// Peek returns the minimum item without removing it. The boolean is false
// when the heap is empty.
func (h *PriorityHeap[T]) Peek() (T, bool) {
	if len(h.items.data) == 0 {
		var zero T
		return zero, false
	}
	return h.items.data[0].item, true
}

// ExtractMin removes and returns the minimum item in O(log n). The boolean
// is false when the heap is empty.
func (h *PriorityHeap[T]) ExtractMin() (T, bool) {
	if len(h.items.data) == 0 {
		var zero T
		return zero, false
	}
	e := heap.Pop(&h.items).(entry[T])
	return e.item, true
}

// Remove deletes the first stored occurrence of item. Locating the item is a
// linear scan; restoring heap order afterwards is O(log n). It reports
// whether the item was found.
func (h *PriorityHeap[T]) Remove(item T) bool {
	for i := range h.items.data {
		if h.items.data[i].item == item {
			heap.Remove(&h.items, i)
			return true
		}
	}
	return false
}

// Items returns a copy of the stored items in heap (not sorted) order.
func (h *PriorityHeap[T]) Items() []T {
	out := make([]T, len(h.items.data))
	for i, e := range h.items.data {
		out[i] = e.item
	}
	return out
}

// entries implements heap.Interface over the stored entries.
type entries[T any] struct {
	data []entry[T]
	less Less[T]
}

func (e entries[T]) Len() int { return len(e.data) }

func (e entries[T]) Less(i, j int) bool {
	a, b := e.data[i], e.data[j]
	if e.less(a.item, b.item) {
		return true
	}
	if e.less(b.item, a.item) {
		return false
	}
	return a.seq < b.seq
}

func (e entries[T]) Swap(i, j int) { e.data[i], e.data[j] = e.data[j], e.data[i] }

func (e *entries[T]) Push(x any) {
	e.data = append(e.data, x.(entry[T]))
}

func (e *entries[T]) Pop() any {
	old := e.data
	n := len(old)
	item := old[n-1]
	var zero entry[T]
	old[n-1] = zero // avoid retaining the item
	e.data = old[:n-1]
	return item
}
