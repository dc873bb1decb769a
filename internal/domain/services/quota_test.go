package services

import (
	"testing"
)

func TestQuotaTracker(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tracker := NewQuotaTracker(DefaultGenerations)
		if got := tracker.Remaining(); got != 5 {
			t.Errorf("Remaining() = %d, want 5", got)
		}
		if !tracker.CanSubmit() {
			t.Error("CanSubmit() = false with positive quota")
		}
	})

	t.Run("negative initial clamped", func(t *testing.T) {
		tracker := NewQuotaTracker(-3)
		if got := tracker.Remaining(); got != 0 {
			t.Errorf("Remaining() = %d, want 0", got)
		}
	})

	t.Run("server update replaces unconditionally", func(t *testing.T) {
		tracker := NewQuotaTracker(2)
		tracker.ApplyServerUpdate(7)
		if got := tracker.Remaining(); got != 7 {
			t.Errorf("Remaining() = %d, want 7", got)
		}
		// The server may report a higher or lower value; the client never
		// argues.
		tracker.ApplyServerUpdate(1)
		if got := tracker.Remaining(); got != 1 {
			t.Errorf("Remaining() = %d, want 1", got)
		}
	})

	t.Run("server update clamps negatives", func(t *testing.T) {
		tracker := NewQuotaTracker(5)
		tracker.ApplyServerUpdate(-1)
		if got := tracker.Remaining(); got != 0 {
			t.Errorf("Remaining() = %d, want 0", got)
		}
	})

	t.Run("mark exhausted", func(t *testing.T) {
		tracker := NewQuotaTracker(5)
		tracker.MarkExhausted()
		if tracker.CanSubmit() {
			t.Error("CanSubmit() = true after MarkExhausted")
		}
		if got := tracker.Remaining(); got != 0 {
			t.Errorf("Remaining() = %d, want 0", got)
		}
	})
}
