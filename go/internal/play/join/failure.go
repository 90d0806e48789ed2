package join

import (
	"errors"
	"fmt"
)

// User-facing messages
const (
	MsgWalletConnectFailed = "Failed to connect wallet"
	MsgWalletMissing       = "Please connect your wallet"
	MsgServerUnavailable   = "Cannot connect server!"
	MsgSomethingWentWrong  = "Something went wrong!"
)

var (
	// ErrBusy is returned when a join is already in flight.
	ErrBusy = errors.New("join already in progress")
	// ErrAlreadyJoined is returned once the server assigned a player id.
	ErrAlreadyJoined = errors.New("already joined a room")

	errTransportDown = errors.New("socket transport not connected")
	errNoAddress     = errors.New("wallet returned no address")
)

// Kind tags why a join failed
type Kind int

const (
	KindUserDeclined Kind = iota + 1
	KindTransportUnavailable
	KindSigningAborted
	KindUnknownFailure
)

func (k Kind) String() string {
	switch k {
	case KindUserDeclined:
		return "user_declined"
	case KindTransportUnavailable:
		return "transport_unavailable"
	case KindSigningAborted:
		return "signing_aborted"
	case KindUnknownFailure:
		return "unknown_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure is the result of an unsuccessful join. Message is what the user
// was shown.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("join %s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("join %s: %s: %v", f.Kind, f.Message, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, or 0 when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
