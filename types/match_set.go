package types

import "fmt"

// MatchSet is a closed exchange cycle. For every i, member i+1 (mod n)
// gives its Have to member i, and that Have equals member i's Want exactly.
type MatchSet []*Intent

func (ms MatchSet) Len() int { return len(ms) }

// Fingerprints returns the fingerprints of all members in cycle order.
func (ms MatchSet) Fingerprints() []Fingerprint {
	fps := make([]Fingerprint, len(ms))
	for i, in := range ms {
		fps[i] = in.Fingerprint()
	}
	return fps
}

func (ms MatchSet) Contains(fp Fingerprint) bool {
	for _, in := range ms {
		if in.Fingerprint() == fp {
			return true
		}
	}
	return false
}

// Giver returns the member that gives to member i.
func (ms MatchSet) Giver(i int) *Intent {
	return ms[(i+1)%len(ms)]
}

// Validate re-checks that the set is a closed cycle of distinct intents.
func (ms MatchSet) Validate() error {
	if len(ms) < 2 {
		return ErrInvalidMatchSet{Index: 0, Reason: fmt.Sprintf("need at least 2 members, got %d", len(ms))}
	}
	seen := make(map[Fingerprint]struct{}, len(ms))
	for i, in := range ms {
		if in == nil {
			return ErrInvalidMatchSet{Index: i, Reason: "nil member"}
		}
		fp := in.Fingerprint()
		if _, ok := seen[fp]; ok {
			return ErrInvalidMatchSet{Index: i, Reason: "duplicate member " + fp.ShortString()}
		}
		seen[fp] = struct{}{}
	}
	for i, in := range ms {
		giver := ms.Giver(i)
		if giver.Have != in.Want {
			return ErrInvalidMatchSet{
				Index:  i,
				Reason: fmt.Sprintf("wants %v but receives %v", in.Want, giver.Have),
			}
		}
	}
	return nil
}
