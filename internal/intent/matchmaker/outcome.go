package matchmaker

import "github.com/gossipnet/intentd/types"

// Outcome is the result of one match attempt: NoMatch or Matched.
type Outcome interface {
	isOutcome()
	// Label names the outcome in metrics and logs.
	Label() string
}

// NoMatch reports an attempt that emitted no transaction.
type NoMatch struct {
	// Inserted is set when the intent became pending.
	Inserted bool
	// Duplicate is set when the intent was already pending.
	Duplicate bool
	// Consumed is set when the intent was already part of an emitted Tx.
	Consumed bool
	// Expired is set when the intent expired before the attempt ran.
	Expired bool
}

// Matched reports an emitted transaction. Every member of Set has been
// removed from the mempool.
type Matched struct {
	Set types.MatchSet
	Tx  *types.Tx
}

func (NoMatch) isOutcome() {}
func (Matched) isOutcome() {}

func (o NoMatch) Label() string {
	switch {
	case o.Consumed:
		return "consumed"
	case o.Duplicate:
		return "duplicate"
	case o.Expired:
		return "expired"
	case o.Inserted:
		return "inserted"
	default:
		return "refused"
	}
}

func (Matched) Label() string { return "matched" }
