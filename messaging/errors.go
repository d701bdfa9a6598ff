package messaging

import "errors"

var (
	// ErrNoOpenChannel refuses a submission while no open channel with
	// delivery confirmations exists. The message is not buffered.
	ErrNoOpenChannel = errors.New("steadymq: no open channel to the broker")

	// ErrSequencePending reports a sequence number recorded twice in the
	// delivery ledger. This is a logic error, never expected at runtime.
	ErrSequencePending = errors.New("steadymq: sequence already pending confirmation")

	// ErrPublisherExists refuses Registry.Create for a badge already in use.
	ErrPublisherExists = errors.New("steadymq: publisher already registered under badge")

	// ErrPublisherUnknown reports a badge with no registered publisher.
	ErrPublisherUnknown = errors.New("steadymq: no publisher registered under badge")
)
