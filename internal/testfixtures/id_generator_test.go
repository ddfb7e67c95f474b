package testfixtures

import "testing"

func TestIDGenerator(t *testing.T) {
	t.Run("produces a deterministic sequence", func(t *testing.T) {
		gen := NewIDGenerator("res")
		for _, expected := range []string{"res-1", "res-2", "res-3"} {
			if got := gen.Next(); got != expected {
				t.Fatalf("expected %s, got %s", expected, got)
			}
		}
	})

	t.Run("empty prefix defaults to id", func(t *testing.T) {
		gen := NewIDGenerator("")
		if got := gen.Next(); got != "id-1" {
			t.Fatalf("expected id-1, got %s", got)
		}
	})

	t.Run("nil generator yields empty identifiers", func(t *testing.T) {
		var gen *IDGenerator
		if got := gen.NextFunc()(); got != "" {
			t.Fatalf("expected empty identifier, got %s", got)
		}
	})
}
