package rphast

import (
	"errors"
	"math"
)

// ErrResourceExhausted is returned when a search would need more per-source
// slots than its budget allows.
var ErrResourceExhausted = errors.New("search slot budget exhausted")

// Slot is the tentative state of one source at one entry.
type Slot struct {
	Weight float64
	Edge   int32 // edge that last improved the slot; -1 at the source itself
	Parent int32 // entry the edge came from; -1 at the source itself
	fresh  bool  // improved since the entry was last settled
}

// Reached reports whether any path from the slot's source was found.
func (s Slot) Reached() bool { return !math.IsInf(s.Weight, 1) }

// Entry is a node discovered by the upward search. Its per-source slots
// live contiguously in the forest arena.
type Entry struct {
	Node   uint32
	Key    float64 // min weight over fresh slots, +Inf if none
	Target bool
}

// Forest holds the entries of one search: one per discovered node, each
// with numSlots slots.
type Forest struct {
	numSlots int
	maxSlots int
	index    map[uint32]int32
	entries  []Entry
	slots    []Slot
}

func newForest(maxSlots int) *Forest {
	return &Forest{maxSlots: maxSlots, index: make(map[uint32]int32)}
}

func (f *Forest) reset(numSlots int) {
	f.numSlots = numSlots
	clear(f.index)
	f.entries = f.entries[:0]
	f.slots = f.slots[:0]
}

func (f *Forest) getOrCreate(node uint32, target bool) (int32, error) {
	if i, ok := f.index[node]; ok {
		return i, nil
	}
	if f.maxSlots > 0 && (len(f.entries)+1)*f.numSlots > f.maxSlots {
		return -1, ErrResourceExhausted
	}
	i := int32(len(f.entries))
	f.index[node] = i
	f.entries = append(f.entries, Entry{Node: node, Key: math.Inf(1), Target: target})
	for range f.numSlots {
		f.slots = append(f.slots, Slot{Weight: math.Inf(1), Edge: -1, Parent: -1})
	}
	return i, nil
}

// Lookup returns the entry index for node.
func (f *Forest) Lookup(node uint32) (int32, bool) {
	i, ok := f.index[node]
	return i, ok
}

// Node returns the node of entry i.
func (f *Forest) Node(i int32) uint32 { return f.entries[i].Node }

// Slot returns source j's slot at entry i.
func (f *Forest) Slot(i int32, j int) Slot { return f.slots[int(i)*f.numSlots+j] }

func (f *Forest) slotsOf(i int32) []Slot {
	off := int(i) * f.numSlots
	return f.slots[off : off+f.numSlots]
}

// Len returns the number of entries.
func (f *Forest) Len() int { return len(f.entries) }

// NumSlots returns the slots per entry, one per source.
func (f *Forest) NumSlots() int { return f.numSlots }
