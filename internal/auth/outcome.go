package auth

import "fmt"

type Kind int

const (
	KindSuccess Kind = iota
	KindRetryable
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of one login stage. Retryable outcomes restart the
// attempt with a fresh session; fatal ones end the login.
type Outcome struct {
	Kind   Kind
	Reason string
	Err    error
}

func Success() Outcome {
	return Outcome{Kind: KindSuccess}
}

func Retryable(reason string, err error) Outcome {
	return Outcome{Kind: KindRetryable, Reason: reason, Err: err}
}

func Fatal(reason string, err error) Outcome {
	return Outcome{Kind: KindFatal, Reason: reason, Err: err}
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

func (o Outcome) String() string {
	switch {
	case o.Kind == KindSuccess:
		return "success"
	case o.Err != nil:
		return fmt.Sprintf("%s: %s: %v", o.Kind, o.Reason, o.Err)
	default:
		return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
	}
}

type State int

const (
	StateStart State = iota
	StateHomepageLoaded
	StateSignInTriggered
	StateFirstFactorSubmitted
	StateSecondFactorPending
	StateAuthenticatedCheck
	StateAuthenticated
	StateFailed
)

var stateNames = [...]string{
	StateStart:                "start",
	StateHomepageLoaded:       "homepage_loaded",
	StateSignInTriggered:      "sign_in_triggered",
	StateFirstFactorSubmitted: "first_factor_submitted",
	StateSecondFactorPending:  "second_factor_pending",
	StateAuthenticatedCheck:   "authenticated_check",
	StateAuthenticated:        "authenticated",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}
