package auth

import (
	"errors"
	"fmt"
)

var ErrLoginFailed = errors.New("login failed")

// LoginError is returned once the attempt budget is spent or a stage fails fatally.
type LoginError struct {
	Attempts int
	Last     Outcome
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed after %d attempt(s): %s", e.Attempts, e.Last)
}

func (e *LoginError) Unwrap() []error {
	if e.Last.Err != nil {
		return []error{ErrLoginFailed, e.Last.Err}
	}
	return []error{ErrLoginFailed}
}
