// Package slotlist implements the lock-free, append-only linked list that
// backs a hazard-pointer domain's protected and retired sets. Each node
// (Slot) holds a single value that readers can claim via CAS; nodes are
// never unlinked once appended, only their value is cleared back to nil and
// reused by a later insert.
package slotlist

import "sync/atomic"

// Slot is one node in a List. The zero value, with a nil value, represents
// an empty slot available for reuse.
type Slot[T any] struct {
	value atomic.Pointer[T]
	next  atomic.Pointer[Slot[T]]
}

// List is a lock-free, singly-linked list of Slot[T], reachable from head.
// Insertion either claims an existing empty slot or prepends a freshly
// allocated one; nothing is ever physically unlinked while the list is live.
type List[T any] struct {
	head atomic.Pointer[Slot[T]]

	allocated atomic.Uint64
	reused    atomic.Uint64
}

// New returns an empty List.
func New[T any]() *List[T] {
	return &List[T]{}
}

// Stats reports cumulative counts of slot allocations and slot reuses.
type Stats struct {
	Allocated int
	Reused    int
}

// Stats returns a snapshot of this list's allocation/reuse counters.
func (l *List[T]) Stats() Stats {
	return Stats{
		Allocated: int(l.allocated.Load()),
		Reused:    int(l.reused.Load()),
	}
}

// InsertOrAppend claims the first empty slot found while scanning from head,
// or appends a new slot holding v if none is free. v must not be nil.
// Returns the slot now holding v.
func (l *List[T]) InsertOrAppend(v *T) *Slot[T] {
	if v == nil {
		panic("slotlist: cannot insert nil value")
	}

	for node := l.head.Load(); node != nil; node = node.next.Load() {
		if node.value.CompareAndSwap(nil, v) {
			l.reused.Add(1)
			return node
		}
	}

	return l.append(v)
}

func (l *List[T]) append(v *T) *Slot[T] {
	n := &Slot[T]{}
	n.value.Store(v)

	for {
		old := l.head.Load()
		n.next.Store(old)
		if l.head.CompareAndSwap(old, n) {
			l.allocated.Add(1)
			return n
		}
	}
}

// Remove clears the first slot found holding v, returning true. Returns
// false if no slot currently holds v.
func (l *List[T]) Remove(v *T) bool {
	for node := l.head.Load(); node != nil; node = node.next.Load() {
		if node.value.CompareAndSwap(v, nil) {
			return true
		}
	}
	return false
}

// Contains reports whether any slot currently holds v. This is a best-effort
// snapshot — by the time Contains returns, a concurrent Remove may have
// already cleared the slot it observed.
func (l *List[T]) Contains(v *T) bool {
	for node := l.head.Load(); node != nil; node = node.next.Load() {
		if node.value.Load() == v {
			return true
		}
	}
	return false
}

// Len walks the list and counts the slots currently holding a non-nil value.
// Like Contains, this is a best-effort snapshot under concurrent mutation.
func (l *List[T]) Len() int {
	n := 0
	for node := l.head.Load(); node != nil; node = node.next.Load() {
		if node.value.Load() != nil {
			n++
		}
	}
	return n
}

// Values returns a snapshot of the values currently held by the list's
// slots. Like Contains, this is best-effort: a concurrent Remove or
// InsertOrAppend may make the snapshot stale before the caller acts on it.
func (l *List[T]) Values() []*T {
	var values []*T
	for node := l.head.Load(); node != nil; node = node.next.Load() {
		if v := node.value.Load(); v != nil {
			values = append(values, v)
		}
	}
	return values
}

// Free discards every slot in the list by clearing head, leaving the slots
// to the garbage collector. Free is not safe for
// concurrent use with any other List method, or with another call to Free;
// it is intended for single-threaded teardown only.
func (l *List[T]) Free() {
	l.head.Store(nil)
}
