package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorWrapsAndMatchesByCode(t *testing.T) {
	cause := stderrors.New("disk gone")
	err := Wrap(CodePlayNotFound, "play 12 missing", cause)

	if !stderrors.Is(err, New(CodePlayNotFound, "other message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(err, New(CodeGameNotFound, "")) {
		t.Fatal("expected different codes not to match")
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected the cause to remain in the chain")
	}
}

func TestGetCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New(CodeStaleSession, "raced"))
	if got := GetCode(wrapped); got != CodeStaleSession {
		t.Fatalf("expected CodeStaleSession, got %s", got)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected CodeUnknown for plain errors, got %s", got)
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeGameNotFound, codes.NotFound},
		{CodePlayNotFound, codes.NotFound},
		{CodeStaleSession, codes.FailedPrecondition},
		{CodeLineupIncomplete, codes.FailedPrecondition},
		{CodeGameIDEmpty, codes.InvalidArgument},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.code, tc.want, got)
		}
	}
}

func TestToGRPCStatusCarriesDetails(t *testing.T) {
	err := WithMetadata(CodeStaleSession, "advance raced", map[string]string{"play_index": "7"})

	st, ok := status.FromError(err.ToGRPCStatus("en-US", "another replay already advanced this session"))
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", st.Code())
	}
	if len(st.Details()) != 2 {
		t.Fatalf("expected 2 detail messages, got %d", len(st.Details()))
	}
}
