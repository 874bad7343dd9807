package twin

import (
	"sync"
	"sync/atomic"
)

// Table is a thread-safe in-memory table keyed by numeric ID. Listing
// returns rows in insertion order.
type Table[T any] struct {
	mu      sync.RWMutex
	rows    map[int64]T
	order   []int64
	start   int64
	counter atomic.Int64
}

// NewTable creates an empty table whose first ID is start+1.
func NewTable[T any](start int64) *Table[T] {
	t := &Table[T]{rows: make(map[int64]T), start: start}
	t.counter.Store(start)
	return t
}

// NextID allocates the next ID.
func (t *Table[T]) NextID() int64 {
	return t.counter.Add(1)
}

// Insert allocates an ID, lets build fill the row, and stores it.
func (t *Table[T]) Insert(build func(id int64) T) T {
	id := t.NextID()
	row := build(id)
	t.Set(id, row)
	return row
}

// Set stores a row. Overwriting keeps the row's position.
func (t *Table[T]) Set(id int64, row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

// Get looks up a row by ID.
func (t *Table[T]) Get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// List returns all rows in insertion order.
func (t *Table[T]) List() []T {
	return t.Filter(func(T) bool { return true })
}

// Filter returns matching rows in insertion order.
func (t *Table[T]) Filter(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		if row := t.rows[id]; keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// Find returns the first matching row.
func (t *Table[T]) Find(match func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if row := t.rows[id]; match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Count returns the number of rows.
func (t *Table[T]) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Reset drops every row and rewinds IDs to the table's start.
func (t *Table[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make(map[int64]T)
	t.order = nil
	t.counter.Store(t.start)
}
