package matchmaker

import (
	"time"

	"github.com/gossipnet/intentd/types"
)

// consumedSet remembers the fingerprints of matched intents until the
// intents expire. An expired intent is rejected by the admission filter, so
// forgetting it after its expiry cannot lead to a second match. Intents
// that never expire are kept forever.
//
// It is only accessed by the worker.
type consumedSet struct {
	expiries map[types.Fingerprint]time.Time
}

func newConsumedSet() *consumedSet {
	return &consumedSet{expiries: make(map[types.Fingerprint]time.Time)}
}

func (s *consumedSet) add(in *types.Intent) {
	s.expiries[in.Fingerprint()] = in.Expiry
}

func (s *consumedSet) has(fp types.Fingerprint) bool {
	_, ok := s.expiries[fp]
	return ok
}

// prune forgets the intents expired at now and returns how many it removed.
func (s *consumedSet) prune(now time.Time) int {
	n := 0
	for fp, expiry := range s.expiries {
		if !expiry.IsZero() && !now.Before(expiry) {
			delete(s.expiries, fp)
			n++
		}
	}
	return n
}

func (s *consumedSet) len() int { return len(s.expiries) }
