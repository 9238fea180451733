package auth

import (
	"errors"
	"testing"
)

func TestOutcomeString(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		out  Outcome
		want string
	}{
		{Success(), "success"},
		{Retryable("page load timeout", nil), "retryable: page load timeout"},
		{Fatal("inbox unavailable", boom), "fatal: inbox unavailable: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.out.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StateSecondFactorPending.String() != "second_factor_pending" {
		t.Errorf("Expected second_factor_pending, got %s", StateSecondFactorPending)
	}
	if State(-1).String() != "State(-1)" {
		t.Errorf("Expected State(-1), got %s", State(-1))
	}
	if State(42).String() != "State(42)" {
		t.Errorf("Expected State(42), got %s", State(42))
	}
}

func TestLoginErrorUnwrap(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_RESET")
	err := error(&LoginError{Attempts: 3, Last: Retryable("failed to load homepage", cause)})

	if !errors.Is(err, ErrLoginFailed) {
		t.Error("LoginError should match ErrLoginFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("LoginError should match the last stage error")
	}
	want := "login failed after 3 attempt(s): retryable: failed to load homepage: net::ERR_CONNECTION_RESET"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &LoginError{Attempts: 1, Last: Fatal("cancelled", nil)}
	if !errors.Is(bare, ErrLoginFailed) {
		t.Error("LoginError without cause should still match ErrLoginFailed")
	}
}
