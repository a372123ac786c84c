// Package hazard implements hazard-pointer based safe memory reclamation
// (SMR) for a single shared pointer cell. A Domain lets any number of reader
// goroutines safely Load and dereference the current value of a cell while a
// writer concurrently Swaps in new values, deferring (or synchronously
// waiting for) reclamation of the old value until no reader still holds it.
//
// Unlike the classical hazard-pointer scheme, which smuggles the protected
// value through an opaque machine word, Domain is generic over the payload
// type T: the hazard value is a genuine *T, so the reclamation core never
// needs unsafe.Pointer or uintptr to do its job.
package hazard

import (
	"sync/atomic"

	"github.com/fmstephe/hazard/internal/slotlist"
)

// Flags controls whether Swap/Cleanup wait synchronously for readers to
// finish with a retiring value, or defer reclamation to a later Cleanup.
type Flags uint8

const (
	// Sync reclaims a retiring value as soon as it is unprotected,
	// spinning until the last reader drops it if necessary.
	Sync Flags = 0
	// Defer reclaims a retiring value immediately only if it is already
	// unprotected; otherwise it is left on the retired list for a later
	// Cleanup call to reclaim.
	Defer Flags = 1 << 0
)

// Domain owns the bookkeeping needed to safely reclaim values published
// through one or more cells: the set of values currently protected by a
// Load/Drop pair, the set of values retired by Swap/CompareAndSwap but not
// yet reclaimed, and the deallocator used to reclaim them.
//
// A Domain may be shared by any number of cells, so long as every cell
// shares the same payload type T and the same reclamation policy.
type Domain[T any] struct {
	protected *slotlist.List[T]
	retired   *slotlist.List[T]
	dealloc   func(*T)
}

// New returns a Domain that reclaims retired values by calling dealloc.
// dealloc must be safe to call concurrently with Load/Drop/Swap/Cleanup on
// values it has not yet been called for.
func New[T any](dealloc func(*T)) *Domain[T] {
	if dealloc == nil {
		panic("hazard: dealloc must not be nil")
	}
	return &Domain[T]{
		protected: slotlist.New[T](),
		retired:   slotlist.New[T](),
		dealloc:   dealloc,
	}
}

// Free releases the Domain's own bookkeeping structures. Free is not safe to
// call concurrently with any other Domain method, or while any reader still
// holds a value obtained from Load that has not been Dropped. Any values
// still on the retired list when Free is called are never reclaimed.
func (d *Domain[T]) Free() {
	d.protected.Free()
	d.retired.Free()
}

// DomainStats reports a point-in-time snapshot of a Domain's bookkeeping
// state, for diagnostics and tests.
type DomainStats struct {
	Protected int
	Retired   int
}

// Stats returns a snapshot of the number of values currently protected by a
// live Load/Drop pair, and the number of values retired but not yet
// reclaimed.
func (d *Domain[T]) Stats() DomainStats {
	return DomainStats{
		Protected: d.protected.Len(),
		Retired:   d.retired.Len(),
	}
}

// Load reads the current value of cell, protecting it against reclamation
// until the matching Drop call. The returned value is nil only if cell's
// current value is nil.
//
// Load must always be paired with a later Drop of the returned value (unless
// it is nil), even across a Swap that replaces cell's value in the meantime.
func Load[T any](d *Domain[T], cell *atomic.Pointer[T]) *T {
	for {
		val := cell.Load()
		if val == nil {
			return nil
		}

		d.protected.InsertOrAppend(val)

		if cell.Load() == val {
			return val
		}

		// cell has moved on; our hazard announcement may be stale for
		// the value we just protected. Remove it and retry with the
		// cell's current value.
		d.protected.Remove(val)
	}
}

// Drop releases the protection on a value previously returned by Load. h
// must be a value currently protected by this Domain; calling Drop with a
// value that was not obtained from Load (or has already been Dropped) is a
// contract violation. Drop panics when no protected slot holds h; if another
// reader still protects the same value, that reader's slot is cleared
// instead and no panic occurs.
func Drop[T any](d *Domain[T], h *T) {
	if h == nil {
		return
	}
	if !d.protected.Remove(h) {
		panic("hazard: Drop called with a value not currently protected by this Domain")
	}
}

// Swap atomically replaces cell's value with newVal and arranges for the old
// value to be reclaimed. If no reader currently holds the old value it is
// reclaimed immediately. Otherwise, with flags == Sync, Swap blocks until the
// last reader drops it; with flags == Defer, reclamation is left for a later
// Cleanup call.
//
// The old value (and newVal, once installed) must never be dereferenced by
// the caller after this call, except via a fresh Load.
func Swap[T any](d *Domain[T], cell *atomic.Pointer[T], newVal *T, flags Flags) (old *T) {
	old = cell.Swap(newVal)
	d.retire(old, flags)
	return old
}

// CompareAndSwap replaces cell's value with newVal if and only if cell
// currently holds expected, reclaiming expected exactly as Swap reclaims the
// old value. Returns whether the swap took place.
func CompareAndSwap[T any](d *Domain[T], cell *atomic.Pointer[T], expected, newVal *T, flags Flags) bool {
	if !cell.CompareAndSwap(expected, newVal) {
		return false
	}
	d.retire(expected, flags)
	return true
}

func (d *Domain[T]) retire(old *T, flags Flags) {
	if old == nil {
		return
	}

	if !d.protected.Contains(old) {
		d.dealloc(old)
		return
	}

	if flags&Defer != 0 {
		d.retired.InsertOrAppend(old)
		return
	}

	for d.protected.Contains(old) {
		// spin until the last reader drops it
	}
	d.dealloc(old)
}

// Cleanup reclaims any values on the retired list that are no longer
// protected. With flags == Sync it additionally blocks until every retired
// value is unprotected, reclaiming all of them before returning; with
// flags == Defer it reclaims only what is already safe and leaves the rest
// for a later call.
func Cleanup[T any](d *Domain[T], flags Flags) {
	for _, ptr := range d.retired.Values() {
		if !d.protected.Contains(ptr) {
			if d.retired.Remove(ptr) {
				d.dealloc(ptr)
			}
			continue
		}

		if flags&Defer == 0 {
			for d.protected.Contains(ptr) {
				// spin until the last reader drops it
			}
			if d.retired.Remove(ptr) {
				d.dealloc(ptr)
			}
		}
	}
}
