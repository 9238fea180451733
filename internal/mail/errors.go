package mail

import "errors"

// Retryable conditions: the confirmation email may simply not have arrived yet.
var (
	ErrNoMessages      = errors.New("inbox has no messages")
	ErrStaleMessage    = errors.New("latest message is older than the freshness window")
	ErrSubjectMismatch = errors.New("latest message has an unexpected subject")
	ErrLinkNotFound    = errors.New("no matching link in message body")
	ErrFetchFailed     = errors.New("failed to fetch messages")
)

// ErrCredentialsUnavailable is fatal: retrying cannot make the inbox readable.
var ErrCredentialsUnavailable = errors.New("inbox credentials unavailable")

// IsRetryable reports whether resending the email and asking again may help.
func IsRetryable(err error) bool {
	for _, target := range []error{ErrNoMessages, ErrStaleMessage, ErrSubjectMismatch, ErrLinkNotFound, ErrFetchFailed} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
