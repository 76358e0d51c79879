package core

import (
	"testing"

	"github.com/pkg/errors"
)

func TestIsShutdown(t *testing.T) {
	orphan := NewOrphanRecordError("fee structure", "s-42", "2024-2025")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "orphan record", err: orphan, want: true},
		{name: "wrapped orphan record", err: errors.Wrap(orphan, "listing defaulters"), want: true},
		{name: "validation error", err: NewValidationError(errors.New("bad"), FieldError{Field: "year", Error: "bad"})},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsShutdown(tt.err); got != tt.want {
				t.Errorf("IsShutdown() = %v, want %v", got, tt.want)
			}
		})
	}

	if got, want := orphan.Error(), `fee structure of 2024-2025 references unknown student "s-42"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
