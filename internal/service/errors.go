package service

import "errors"

// Precondition violations surfaced to callers as rejected operations. The
// HTTP layer maps each to a status code; none are retried automatically.
var (
	// ErrPartialCoordinates rejects presence writes carrying only one of
	// lat/lng.
	ErrPartialCoordinates = errors.New("lat and lng must be set together")

	// ErrSelfSignal rejects a signal whose sender and recipient coincide.
	ErrSelfSignal = errors.New("cannot send a signal to yourself")

	// ErrUnknownRecipient rejects a signal to a user with no profile.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrInvalidResponse rejects responses other than accepted/ignored.
	ErrInvalidResponse = errors.New("response must be accepted or ignored")

	// ErrNotRecipient rejects a respond call from anyone but the recipient.
	ErrNotRecipient = errors.New("only the recipient can respond to a signal")

	// ErrNotSender rejects a cancel call from anyone but the sender.
	ErrNotSender = errors.New("only the sender can cancel a signal")

	// ErrSignalNotFound covers responses to ids that never existed.
	ErrSignalNotFound = errors.New("signal not found")

	// ErrAlreadyResolved is the stale-state race: the signal left pending
	// before this operation's conditional update could commit. Distinct from
	// a generic failure so callers can explain rather than imply a bug.
	ErrAlreadyResolved = errors.New("signal already resolved")
)
