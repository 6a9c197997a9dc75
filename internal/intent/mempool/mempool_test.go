package mempool

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gossipnet/intentd/internal/test/factory"
	"github.com/gossipnet/intentd/libs/log"
	"github.com/gossipnet/intentd/types"
)

type testClock struct {
	mtx sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.now = c.now.Add(d)
}

func setup(t testing.TB, capacity int, options ...Option) *Mempool {
	t.Helper()
	return New(log.TestingLogger(), capacity, options...)
}

func makeIntent(name, have, want string) *types.Intent {
	return factory.MakeIntent(factory.Holder(name), factory.Asset(have, 5), factory.Asset(want, 5))
}

func collect(mp *Mempool, in *types.Intent) []*types.Intent {
	var out []*types.Intent
	for e := range mp.CandidatesFor(in) {
		out = append(out, e.Intent)
	}
	return out
}

func TestMempoolInsertDuplicate(t *testing.T) {
	mp := setup(t, 10)
	in := makeIntent("alice", "X", "Y")

	require.True(t, mp.Insert(in))
	e, ok := mp.Get(in.Fingerprint())
	require.True(t, ok)

	// a second delivery of the same intent is reported and changes nothing
	require.False(t, mp.Insert(in))
	require.Equal(t, 1, mp.Size())
	e2, ok := mp.Get(in.Fingerprint())
	require.True(t, ok)
	require.Same(t, e, e2)
}

func TestMempoolSeqIsStrictlyIncreasing(t *testing.T) {
	mp := setup(t, 10)
	for i := 0; i < 5; i++ {
		require.True(t, mp.Insert(makeIntent(fmt.Sprintf("h%d", i), "X", "Y")))
	}

	entries := mp.Entries()
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Seq, entries[i].Seq)
	}
}

func TestMempoolEvictsOldestFirst(t *testing.T) {
	mp := setup(t, 3)
	ins := make([]*types.Intent, 4)
	for i := range ins {
		ins[i] = makeIntent(fmt.Sprintf("h%d", i), "X", "Y")
		require.True(t, mp.Insert(ins[i]))
	}

	require.Equal(t, 3, mp.Size())
	require.False(t, mp.Has(ins[0].Fingerprint()))
	for _, in := range ins[1:] {
		require.True(t, mp.Has(in.Fingerprint()))
	}
}

func TestMempoolEvictionSkipsReserved(t *testing.T) {
	mp := setup(t, 2)
	a, b, c := makeIntent("a", "X", "Y"), makeIntent("b", "X", "Y"), makeIntent("c", "X", "Y")
	require.True(t, mp.Insert(a))
	require.True(t, mp.Insert(b))
	require.True(t, mp.Reserve([]types.Fingerprint{a.Fingerprint()}))

	require.True(t, mp.Insert(c))
	require.True(t, mp.Has(a.Fingerprint()), "reserved entry must not be evicted")
	require.False(t, mp.Has(b.Fingerprint()))

	// with everything reserved the insert is refused
	require.True(t, mp.Reserve([]types.Fingerprint{c.Fingerprint()}))
	d := makeIntent("d", "X", "Y")
	require.False(t, mp.Insert(d))
	require.Equal(t, 2, mp.Size())

	mp.Release([]types.Fingerprint{a.Fingerprint(), c.Fingerprint()})
	require.True(t, mp.Insert(d))
	require.False(t, mp.Has(a.Fingerprint()))
}

func TestMempoolRemoveIsAtomic(t *testing.T) {
	mp := setup(t, 10)
	a, b := makeIntent("a", "X", "Y"), makeIntent("b", "Y", "X")
	absent := makeIntent("absent", "X", "Y")
	require.True(t, mp.Insert(a))
	require.True(t, mp.Insert(b))

	require.False(t, mp.Remove([]types.Fingerprint{a.Fingerprint(), absent.Fingerprint()}))
	require.Equal(t, 2, mp.Size())

	require.True(t, mp.Remove([]types.Fingerprint{a.Fingerprint(), b.Fingerprint()}))
	require.Zero(t, mp.Size())
	require.Empty(t, collect(mp, makeIntent("z", "Y", "X")))

	// already consumed
	require.False(t, mp.Remove([]types.Fingerprint{a.Fingerprint()}))
}

func TestMempoolReserve(t *testing.T) {
	mp := setup(t, 10)
	a, b := makeIntent("a", "X", "Y"), makeIntent("b", "Y", "X")
	require.True(t, mp.Insert(a))
	require.True(t, mp.Insert(b))

	require.True(t, mp.Reserve([]types.Fingerprint{a.Fingerprint()}))
	require.True(t, mp.IsReserved(a.Fingerprint()))
	require.False(t, mp.Reserve([]types.Fingerprint{b.Fingerprint(), a.Fingerprint()}))
	require.False(t, mp.IsReserved(b.Fingerprint()), "a failed reservation reserves nothing")

	mp.Release([]types.Fingerprint{a.Fingerprint()})
	require.False(t, mp.IsReserved(a.Fingerprint()))
}

func TestMempoolCandidatesFor(t *testing.T) {
	clock := newTestClock()
	mp := setup(t, 10, WithClock(clock.Now))

	gy1 := makeIntent("g1", "Y", "X")
	gz := makeIntent("gz", "Z", "X")
	gy2 := makeIntent("g2", "Y", "W")
	expiring := factory.MakeExpiringIntent(factory.Holder("g3"), factory.Asset("Y", 1), factory.Asset("X", 1), clock.Now().Add(time.Minute))
	for _, in := range []*types.Intent{gy1, gz, gy2, expiring} {
		require.True(t, mp.Insert(in))
	}

	taker := makeIntent("taker", "X", "Y")
	require.Equal(t, []*types.Intent{gy1, gy2, expiring}, collect(mp, taker))

	// restartable: a second pass yields the same sequence
	require.Equal(t, []*types.Intent{gy1, gy2, expiring}, collect(mp, taker))

	clock.Advance(time.Minute)
	require.Equal(t, []*types.Intent{gy1, gy2}, collect(mp, taker))

	// an intent is never its own candidate
	self := makeIntent("self", "Y", "Y")
	require.True(t, mp.Insert(self))
	for e := range mp.CandidatesFor(self) {
		require.NotEqual(t, self.Fingerprint(), e.Fingerprint)
	}
}

func TestMempoolCandidatesSurviveMutation(t *testing.T) {
	mp := setup(t, 10)
	a, b := makeIntent("a", "Y", "X"), makeIntent("b", "Y", "X")
	require.True(t, mp.Insert(a))
	require.True(t, mp.Insert(b))

	taker := makeIntent("taker", "X", "Y")
	var seen []*types.Intent
	for e := range mp.CandidatesFor(taker) {
		seen = append(seen, e.Intent)
		// mutate while iterating
		mp.Remove([]types.Fingerprint{b.Fingerprint()})
		mp.Insert(makeIntent("late", "Y", "X"))
	}
	// b left before it was reached and late arrived after the walk started
	require.Equal(t, []*types.Intent{a}, seen)
	require.Len(t, collect(mp, taker), 2)

	// early stop
	for range mp.CandidatesFor(taker) {
		break
	}
}

func TestMempoolCandidatesAreLazy(t *testing.T) {
	mp := setup(t, 100)
	for i := 0; i < 50; i++ {
		require.True(t, mp.Insert(makeIntent(fmt.Sprintf("g%d", i), "Y", "X")))
	}
	taker := makeIntent("taker", "X", "Y")

	// stopping after the first candidate does not visit the rest
	var visited int
	for e := range mp.CandidatesFor(taker) {
		visited++
		require.EqualValues(t, 1, e.Seq)
		break
	}
	require.Equal(t, 1, visited)

	// an entry removed ahead of the walk is skipped
	second := makeIntent("g1", "Y", "X").Fingerprint()
	var seqs []uint64
	for e := range mp.CandidatesFor(taker) {
		seqs = append(seqs, e.Seq)
		if len(seqs) == 1 {
			require.True(t, mp.Remove([]types.Fingerprint{second}))
		}
		if len(seqs) == 3 {
			break
		}
	}
	require.Equal(t, []uint64{1, 3, 4}, seqs)
}

func TestMempoolPurgeExpired(t *testing.T) {
	clock := newTestClock()
	mp := setup(t, 10, WithClock(clock.Now))

	soon := factory.MakeExpiringIntent(factory.Holder("a"), factory.Asset("X", 1), factory.Asset("Y", 1), clock.Now().Add(time.Second))
	held := factory.MakeExpiringIntent(factory.Holder("b"), factory.Asset("X", 1), factory.Asset("Y", 1), clock.Now().Add(time.Second))
	forever := makeIntent("c", "X", "Y")
	for _, in := range []*types.Intent{soon, held, forever} {
		require.True(t, mp.Insert(in))
	}
	require.True(t, mp.Reserve([]types.Fingerprint{held.Fingerprint()}))

	require.Zero(t, mp.PurgeExpired(clock.Now()))
	clock.Advance(time.Second)
	require.Equal(t, 1, mp.PurgeExpired(clock.Now()))
	require.False(t, mp.Has(soon.Fingerprint()))
	require.True(t, mp.Has(held.Fingerprint()))
	require.True(t, mp.Has(forever.Fingerprint()))
}

func TestMempoolFlush(t *testing.T) {
	mp := setup(t, 10)
	require.True(t, mp.Insert(makeIntent("a", "X", "Y")))
	mp.Flush()
	require.Zero(t, mp.Size())
	require.Empty(t, mp.Entries())
}

func TestMempoolConcurrentReaders(t *testing.T) {
	mp := setup(t, 50)
	taker := makeIntent("taker", "X", "Y")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			mp.Insert(makeIntent(fmt.Sprintf("w%d", i), "Y", "X"))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				for e := range mp.CandidatesFor(taker) {
					_ = e.Fingerprint
				}
				_ = mp.Size()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 50, mp.Size())
}

// TestMempoolProperties drives random inserts and removals and checks
// the mempool indexes stay consistent.
func TestMempoolProperties(t *testing.T) {
	pool := make([]*types.Intent, 12)
	for i := range pool {
		pool[i] = makeIntent(fmt.Sprintf("p%d", i), []string{"X", "Y", "Z"}[i%3], []string{"Y", "Z", "X"}[i%3])
	}

	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 6).Draw(t, "capacity")
		mp := New(log.NewNopLogger(), capacity)

		t.Repeat(map[string]func(*rapid.T){
			"insert": func(t *rapid.T) {
				in := rapid.SampledFrom(pool).Draw(t, "intent")
				had := mp.Has(in.Fingerprint())
				ok := mp.Insert(in)
				if had == ok {
					t.Fatalf("insert returned %v with entry present=%v", ok, had)
				}
				if !mp.Has(in.Fingerprint()) {
					t.Fatal("inserted entry missing")
				}
			},
			"remove": func(t *rapid.T) {
				in := rapid.SampledFrom(pool).Draw(t, "intent")
				had := mp.Has(in.Fingerprint())
				ok := mp.Remove([]types.Fingerprint{in.Fingerprint()})
				if ok != had {
					t.Fatalf("remove returned %v with entry present=%v", ok, had)
				}
				if mp.Has(in.Fingerprint()) {
					t.Fatal("removed entry still present")
				}
			},
			"": func(t *rapid.T) {
				if mp.Size() > capacity {
					t.Fatalf("size %d exceeds capacity %d", mp.Size(), capacity)
				}
				seen := map[types.Fingerprint]bool{}
				var last uint64
				for _, e := range mp.Entries() {
					if seen[e.Fingerprint] {
						t.Fatal("fingerprint indexed twice")
					}
					seen[e.Fingerprint] = true
					if e.Seq <= last {
						t.Fatal("fifo index out of order")
					}
					last = e.Seq
				}
				if len(seen) != mp.Size() {
					t.Fatal("fifo index out of sync with primary index")
				}
			},
		})
	})
}
