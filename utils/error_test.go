package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err      error
		expected ErrorKind
	}{
		{ValidationError("bad input"), ErrorKindValidation},
		{ConflictError("already posted"), ErrorKindConflict},
		{NotFoundError("no such run"), ErrorKindNotFound},
		{SetupError("no mapping"), ErrorKindSetup},
		{fmt.Errorf("wrap: %w", ConflictError("already posted")), ErrorKindConflict},
		{ErrorRecordNotFound, ErrorKindNotFound},
		{errors.New("dial tcp: refused"), ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.expected {
			t.Fatalf("KindOf(%v) expected %q, got %q", tc.err, tc.expected, got)
		}
	}
}

func TestUniqueSlicePreservesOrder(t *testing.T) {
	got := UniqueSlice([]string{"a", "b", "a", "c", "b"})
	expected := []string{"a", "b", "c"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, got)
		}
	}
}
