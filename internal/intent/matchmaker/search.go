package matchmaker

import (
	"slices"
	"sort"

	"github.com/gossipnet/intentd/internal/intent/mempool"
	"github.com/gossipnet/intentd/types"
)

// cycle is a closed cycle starting at the new intent. members are the
// pending entries in cycle order after it.
type cycle struct {
	members []*mempool.Entry
	// rank holds the members' Seqs sorted in descending order.
	rank []uint64
}

func newCycle(path []*mempool.Entry) *cycle {
	c := &cycle{
		members: slices.Clone(path),
		rank:    make([]uint64, len(path)),
	}
	for i, e := range path {
		c.rank[i] = e.Seq
	}
	sort.Slice(c.rank, func(i, j int) bool { return c.rank[i] > c.rank[j] })
	return c
}

// better reports whether c should be selected over other. Both have the
// same length. The most recently added member of the winner is the oldest
// possible; further ties fall through to the next members. Seqs are unique
// so this is a total order.
func (c *cycle) better(other *cycle) bool {
	return slices.Compare(c.rank, other.rank) < 0
}

func (c *cycle) matchSet(in *types.Intent) types.MatchSet {
	set := make(types.MatchSet, 0, len(c.members)+1)
	set = append(set, in)
	for _, e := range c.members {
		set = append(set, e.Intent)
	}
	return set
}

func (c *cycle) fingerprints() []types.Fingerprint {
	fps := make([]types.Fingerprint, len(c.members))
	for i, e := range c.members {
		fps[i] = e.Fingerprint
	}
	return fps
}

// searcher looks for the best cycle closing on one new intent. It is used
// by a single attempt and is not safe for concurrent use.
type searcher struct {
	policy          Policy
	mempool         *mempool.Mempool
	maxLength       int
	maxSteps        int
	distinctHolders bool

	origin  *types.Intent
	target  int
	steps   int
	path    []*mempool.Entry
	onPath  map[types.Fingerprint]struct{}
	holders map[string]struct{}
	best    *cycle
	err     error
}

// search walks origin → c1 → … → c(L-1) → origin for L = 2..maxLength,
// where every edge is linked by the policy, and returns the best cycle of
// the shortest length found. Every candidate evaluation counts as a step;
// once maxSteps is spent the best cycle found so far is returned.
func (s *searcher) search(origin *types.Intent) (*cycle, error) {
	s.origin = origin
	s.path = make([]*mempool.Entry, 0, s.maxLength-1)
	s.onPath = make(map[types.Fingerprint]struct{}, s.maxLength)
	s.holders = make(map[string]struct{}, s.maxLength)
	s.holders[holderKey(origin)] = struct{}{}

	for s.target = 2; s.target <= s.maxLength; s.target++ {
		s.extend(origin)
		if s.err != nil {
			return nil, s.err
		}
		if s.best != nil || s.exhausted() {
			break
		}
	}
	return s.best, nil
}

func (s *searcher) exhausted() bool {
	return s.steps >= s.maxSteps
}

// extend tries every candidate giving to last. It returns false when the
// walk must stop.
func (s *searcher) extend(last *types.Intent) bool {
	for e := range s.mempool.CandidatesFor(last) {
		if s.exhausted() {
			return false
		}
		s.steps++

		if _, ok := s.onPath[e.Fingerprint]; ok {
			continue
		}
		holder := holderKey(e.Intent)
		if _, ok := s.holders[holder]; ok && s.distinctHolders {
			continue
		}

		ok, err := links(s.policy, last, e.Intent)
		if err != nil {
			s.err = err
			return false
		}
		if !ok {
			continue
		}

		s.push(e, holder)
		cont := s.visit(e)
		s.pop(e, holder)
		if !cont {
			return false
		}
	}
	return true
}

// visit handles the walk after e was appended to the path.
func (s *searcher) visit(e *mempool.Entry) bool {
	// path plus origin
	if len(s.path)+1 < s.target {
		return s.extend(e.Intent)
	}

	ok, err := links(s.policy, e.Intent, s.origin)
	if err != nil {
		s.err = err
		return false
	}
	if ok {
		c := newCycle(s.path)
		if s.best == nil || c.better(s.best) {
			s.best = c
		}
	}
	return true
}

func (s *searcher) push(e *mempool.Entry, holder string) {
	s.path = append(s.path, e)
	s.onPath[e.Fingerprint] = struct{}{}
	if s.distinctHolders {
		s.holders[holder] = struct{}{}
	}
}

func (s *searcher) pop(e *mempool.Entry, holder string) {
	s.path = s.path[:len(s.path)-1]
	delete(s.onPath, e.Fingerprint)
	if s.distinctHolders {
		delete(s.holders, holder)
	}
}

func holderKey(in *types.Intent) string {
	return string(in.Holder)
}
