package types

import "fmt"

// ErrInvalidIntent is returned when an intent fails structural validation.
type ErrInvalidIntent struct {
	Reason string
}

func (e ErrInvalidIntent) Error() string {
	return fmt.Sprintf("invalid intent: %s", e.Reason)
}

// ErrInvalidMatchSet describes the first broken link of a match set.
type ErrInvalidMatchSet struct {
	Index  int
	Reason string
}

func (e ErrInvalidMatchSet) Error() string {
	return fmt.Sprintf("invalid match set at member %d: %s", e.Index, e.Reason)
}
