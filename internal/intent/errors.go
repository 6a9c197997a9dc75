package intent

import "fmt"

// ErrMsgTooLarge defines an error when a raw gossip message exceeds
// max-msg-bytes.
type ErrMsgTooLarge struct {
	Max    int
	Actual int
}

func (e ErrMsgTooLarge) Error() string {
	return fmt.Sprintf("message too large. Max size is %d, but got %d", e.Max, e.Actual)
}

// ErrDecode is returned by ParseRawMsg for any input that is not a well
// formed IntentBroadcasterMessage.
type ErrDecode struct {
	Reason error
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("failed to decode intent message: %v", e.Reason)
}

func (e ErrDecode) Unwrap() error { return e.Reason }

// ErrMatchmakerInit is returned by NewGossipIntent when the matchmaker
// cannot be built from its configuration.
type ErrMatchmakerInit struct {
	Reason error
}

func (e ErrMatchmakerInit) Error() string {
	return fmt.Sprintf("failed to initialize matchmaker: %v", e.Reason)
}

func (e ErrMatchmakerInit) Unwrap() error { return e.Reason }

// ErrMatchmaker is a fault during a match attempt. The intent it concerns
// was kept as pending.
type ErrMatchmaker struct {
	Reason error
}

func (e ErrMatchmaker) Error() string {
	return fmt.Sprintf("matchmaker: %v", e.Reason)
}

func (e ErrMatchmaker) Unwrap() error { return e.Reason }
