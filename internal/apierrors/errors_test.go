package apierrors

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestGRPCStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want codes.Code
	}{
		{UserNotFound, codes.NotFound},
		{UserAlreadyExists, codes.AlreadyExists},
		{InvalidUsername, codes.InvalidArgument},
		{RateLimitExceeded, codes.ResourceExhausted},
		{SessionNotFound, codes.NotFound},
		{SessionExpired, codes.DeadlineExceeded},
		{Database, codes.Internal},
		{Validation, codes.InvalidArgument},
	}

	for _, tc := range cases {
		err := New(tc.kind, "boom")
		if got := err.GRPCStatus().Code(); got != tc.want {
			t.Errorf("kind %v: got code %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := New(SessionNotFound, "no such session")
	wrapped := errors.Join(errors.New("handler failed"), base)

	if !Is(wrapped, SessionNotFound) {
		t.Fatalf("expected wrapped error to report kind SessionNotFound, got %v", KindOf(wrapped))
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if KindOf(errors.New("plain")) != Internal {
		t.Fatal("expected plain error to map to Internal")
	}
}
