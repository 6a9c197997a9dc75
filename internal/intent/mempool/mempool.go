package mempool

import (
	"iter"
	"sync"
	"time"

	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

// Mempool is a concurrency-safe store of pending intents keyed by
// fingerprint and bounded by a capacity.
//
// Besides the primary index it keeps a FIFO index, used for eviction, and a
// per Have.Denom index, used to produce match candidates. Both are ordered
// by insertion sequence.
//
// Mutations are expected to come from a single writer (the matchmaker);
// the lock makes concurrent readers safe.
type Mempool struct {
	logger   log.Logger
	metrics  *Metrics
	now      func() time.Time
	capacity int

	mtx     sync.RWMutex
	seq     uint64
	entries map[types.Fingerprint]*Entry // primary index
	fifo    *entryList                   // all entries, oldest first
	byHave  map[string]*entryList        // entries by Have.Denom
}

// Option sets an optional parameter on the Mempool.
type Option func(*Mempool)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(mp *Mempool) { mp.metrics = metrics }
}

// WithClock sets the clock used for entry timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(mp *Mempool) { mp.now = now }
}

// New returns a Mempool holding at most capacity intents.
func New(logger log.Logger, capacity int, options ...Option) *Mempool {
	if capacity <= 0 {
		panic("mempool capacity must be positive")
	}
	mp := &Mempool{
		logger:   logger,
		metrics:  NopMetrics(),
		now:      time.Now,
		capacity: capacity,
		entries:  make(map[types.Fingerprint]*Entry),
		fifo:     newEntryList(),
		byHave:   make(map[string]*entryList),
	}

	for _, opt := range options {
		opt(mp)
	}

	return mp
}

// Capacity returns the maximum number of pending intents.
func (mp *Mempool) Capacity() int { return mp.capacity }

// Size returns the number of pending intents.
func (mp *Mempool) Size() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return len(mp.entries)
}

// Has reports whether an intent with fingerprint fp is pending.
func (mp *Mempool) Has(fp types.Fingerprint) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	_, ok := mp.entries[fp]
	return ok
}

// Get returns the entry for fp.
func (mp *Mempool) Get(fp types.Fingerprint) (*Entry, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	e, ok := mp.entries[fp]
	return e, ok
}

// IsReserved reports whether fp is held by an in-flight match attempt.
func (mp *Mempool) IsReserved(fp types.Fingerprint) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	e, ok := mp.entries[fp]
	return ok && e.reserved
}

// Entries returns all pending entries, oldest first.
func (mp *Mempool) Entries() []*Entry {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return mp.fifo.Snapshot()
}

// Insert adds in to the mempool. It returns false, leaving the mempool
// untouched, if the fingerprint is already present or if the mempool is
// full and every entry is reserved. At capacity the oldest unreserved
// entries are evicted first.
func (mp *Mempool) Insert(in *types.Intent) bool {
	fp := in.Fingerprint()

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if _, ok := mp.entries[fp]; ok {
		mp.metrics.DuplicateIntents.Add(1)
		return false
	}

	for len(mp.entries) >= mp.capacity {
		victim := mp.fifo.Oldest(func(e *Entry) bool { return !e.reserved })
		if victim == nil {
			mp.logger.Debug("rejected intent; mempool is full of reserved intents",
				"fingerprint", fp, "capacity", mp.capacity)
			mp.metrics.RejectedIntents.Add(1)
			return false
		}

		mp.removeEntry(victim)
		mp.metrics.EvictedIntents.Add(1)
		mp.logger.Debug("evicted intent",
			"fingerprint", victim.Fingerprint,
			"seq", victim.Seq,
			"age", mp.now().Sub(victim.Timestamp),
		)
	}

	mp.seq++
	e := &Entry{
		Intent:      in,
		Fingerprint: fp,
		Seq:         mp.seq,
		Timestamp:   mp.now(),
	}

	mp.entries[fp] = e
	mp.fifo.Insert(e)
	l, ok := mp.byHave[in.Have.Denom]
	if !ok {
		l = newEntryList()
		mp.byHave[in.Have.Denom] = l
	}
	l.Insert(e)

	mp.metrics.Size.Set(float64(len(mp.entries)))
	return true
}

// Remove removes every intent in fps. If any fingerprint is absent nothing
// is removed and false is returned.
func (mp *Mempool) Remove(fps []types.Fingerprint) bool {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, fp := range fps {
		if _, ok := mp.entries[fp]; !ok {
			return false
		}
	}

	for _, fp := range fps {
		if e, ok := mp.entries[fp]; ok {
			mp.removeEntry(e)
		}
	}

	mp.metrics.Size.Set(float64(len(mp.entries)))
	return true
}

// Reserve marks every entry in fps as held by an in-flight match attempt.
// It reserves nothing and returns false if any entry is absent or already
// reserved.
func (mp *Mempool) Reserve(fps []types.Fingerprint) bool {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, fp := range fps {
		e, ok := mp.entries[fp]
		if !ok || e.reserved {
			return false
		}
	}

	for _, fp := range fps {
		mp.entries[fp].reserved = true
	}
	return true
}

// Release clears the reservation of every present entry in fps.
func (mp *Mempool) Release(fps []types.Fingerprint) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, fp := range fps {
		if e, ok := mp.entries[fp]; ok {
			e.reserved = false
		}
	}
}

// PurgeExpired removes every unreserved intent expired at now and returns
// the number removed.
func (mp *Mempool) PurgeExpired(now time.Time) int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var purged int
	for _, e := range mp.fifo.Snapshot() {
		if e.reserved || !e.Intent.IsExpired(now) {
			continue
		}

		mp.removeEntry(e)
		purged++
	}

	if purged > 0 {
		mp.metrics.ExpiredIntents.Add(float64(purged))
		mp.metrics.Size.Set(float64(len(mp.entries)))
		mp.logger.Debug("purged expired intents", "num", purged, "remaining", len(mp.entries))
	}
	return purged
}

// Flush removes every entry, reserved or not.
func (mp *Mempool) Flush() {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.entries = make(map[types.Fingerprint]*Entry)
	mp.fifo = newEntryList()
	mp.byHave = make(map[string]*entryList)
	mp.metrics.Size.Set(0)
}

// CandidatesFor returns the entries that could give what in wants: those
// whose Have.Denom equals in.Want.Denom, excluding in itself and expired
// entries, in insertion order.
//
// The sequence is walked lazily, taking the read lock once per entry.
// Entries inserted after an iteration starts are not yielded, and entries
// removed before they are reached are skipped, so every iteration is
// finite and restartable.
func (mp *Mempool) CandidatesFor(in *types.Intent) iter.Seq[*Entry] {
	self := in.Fingerprint()
	denom := in.Want.Denom

	return func(yield func(*Entry) bool) {
		mp.mtx.RLock()
		last := mp.seq
		now := mp.now()
		mp.mtx.RUnlock()

		for next := uint64(0); ; {
			e := mp.nextHaving(denom, next)
			if e == nil || e.Seq > last {
				return
			}
			next = e.Seq + 1

			if e.Fingerprint == self || e.Intent.IsExpired(now) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (mp *Mempool) nextHaving(denom string, seq uint64) *Entry {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	l, ok := mp.byHave[denom]
	if !ok {
		return nil
	}
	return l.Next(seq)
}

// removeEntry deletes e from every index.
//
// NOTE: the caller must hold mp.mtx.
func (mp *Mempool) removeEntry(e *Entry) {
	if _, ok := mp.entries[e.Fingerprint]; !ok {
		return
	}

	delete(mp.entries, e.Fingerprint)
	mp.fifo.Remove(e)

	denom := e.Intent.Have.Denom
	if l, ok := mp.byHave[denom]; ok {
		l.Remove(e)
		if l.Len() == 0 {
			delete(mp.byHave, denom)
		}
	}
	e.reserved = false
}
