package mempool

import (
	"sort"
	"time"

	"github.com/gossipnet/intentd/types"
)

// Entry wraps a pending intent with the metadata used for indexing.
//
// NOTE: Entry fields are immutable once the entry is inserted. reserved is
// guarded by the owning Mempool's mutex.
type Entry struct {
	Intent      *types.Intent
	Fingerprint types.Fingerprint

	// Seq is a strictly increasing insertion sequence. It orders the FIFO
	// index and breaks ties during match selection.
	Seq uint64

	// Timestamp is the time at which the intent entered the mempool.
	Timestamp time.Time

	// reserved marks the entry as held by an in-flight match attempt. Reserved
	// entries are never evicted or purged.
	reserved bool
}

// entryList is a list of entries kept sorted by Seq. It is not safe for
// concurrent use; the Mempool serializes access.
type entryList struct {
	entries []*Entry
}

func newEntryList() *entryList {
	return &entryList{entries: make([]*Entry, 0)}
}

func (el *entryList) Len() int {
	return len(el.entries)
}

func (el *entryList) search(seq uint64) int {
	return sort.Search(len(el.entries), func(i int) bool {
		return el.entries[i].Seq >= seq
	})
}

// Insert inserts e at its Seq position.
func (el *entryList) Insert(e *Entry) {
	i := el.search(e.Seq)
	if i == len(el.entries) {
		// insert at the end
		el.entries = append(el.entries, e)
		return
	}

	// Make space for the inserted element by shifting values at the insertion
	// index up one index.
	el.entries = append(el.entries[:i+1], el.entries[i:]...)
	el.entries[i] = e
}

// Remove removes e from the list if present.
func (el *entryList) Remove(e *Entry) {
	i := el.search(e.Seq)
	if i < len(el.entries) && el.entries[i] == e {
		el.entries = append(el.entries[:i], el.entries[i+1:]...)
	}
}

// Next returns the first entry with a Seq of at least seq, or nil.
func (el *entryList) Next(seq uint64) *Entry {
	if i := el.search(seq); i < len(el.entries) {
		return el.entries[i]
	}
	return nil
}

// Snapshot returns a copy of the list safe to iterate after the caller
// releases the mempool lock.
func (el *entryList) Snapshot() []*Entry {
	out := make([]*Entry, len(el.entries))
	copy(out, el.entries)
	return out
}

// Oldest returns the first entry, in Seq order, for which ok returns true.
func (el *entryList) Oldest(ok func(*Entry) bool) *Entry {
	for _, e := range el.entries {
		if ok(e) {
			return e
		}
	}
	return nil
}
