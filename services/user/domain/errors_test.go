package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_Messages(t *testing.T) {
	tests := map[error]string{
		ErrUserNotFound: "user not found",
		ErrEmailTaken:   "email already registered",
		ErrInvalidUser:  "invalid user",
	}
	for err, want := range tests {
		if err.Error() != want {
			t.Errorf("unexpected message: got %q, want %q", err.Error(), want)
		}
	}
}

func TestSentinelErrors_WrappedIdentity(t *testing.T) {
	if !errors.Is(fmt.Errorf("get user: %w", ErrUserNotFound), ErrUserNotFound) {
		t.Fatal("errors.Is must match wrapped ErrUserNotFound")
	}
	if !errors.Is(fmt.Errorf("%w: %w", ErrInvalidUser, errors.New("bad role")), ErrInvalidUser) {
		t.Fatal("errors.Is must match double-wrapped ErrInvalidUser")
	}
}
