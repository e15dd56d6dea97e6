package pipeline

import (
	"errors"
	"testing"
)

// TestMergeFieldValue tests merging rule names into a custom field value.
func TestMergeFieldValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing string
		rules    []string
		want     string
	}{
		{name: "empty field", existing: "", rules: []string{"B", "A"}, want: "A; B"},
		{name: "union with existing", existing: "A; B", rules: []string{"B", "C"}, want: "A; B; C"},
		{name: "idempotent", existing: "A; B; C", rules: []string{"C", "A"}, want: "A; B; C"},
		{name: "blank entries dropped", existing: "; A;  ; ", rules: []string{" ", "B"}, want: "A; B"},
		{name: "surrounding whitespace trimmed", existing: " A ", rules: []string{"A "}, want: "A"},
		{name: "no rules keeps existing", existing: "X", rules: nil, want: "X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := MergeFieldValue(tt.existing, tt.rules); got != tt.want {
				t.Errorf("MergeFieldValue(%q, %v) = %q, want %q", tt.existing, tt.rules, got, tt.want)
			}
		})
	}
}

// TestProtect tests panic recovery around collaborator calls.
func TestProtect(t *testing.T) {
	t.Parallel()

	t.Run("passes errors through", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		if err := protect(func() error { return boom }); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("converts panics", func(t *testing.T) {
		t.Parallel()

		err := protect(func() error { panic("kaboom") })
		if !errors.Is(err, ErrCollaboratorPanic) {
			t.Errorf("expected ErrCollaboratorPanic, got %v", err)
		}
	})
}
