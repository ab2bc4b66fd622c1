package crawler

import "testing"

// TestStateString tests state descriptions.
func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateCompleted, "completed"},
		{StateAborted, "aborted"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String(): expected %q, got %q", tt.state, tt.want, got)
		}
	}
}

// TestStateTerminal tests terminal-state detection.
func TestStateTerminal(t *testing.T) {
	t.Parallel()

	if StateIdle.Terminal() || StateRunning.Terminal() {
		t.Error("expected idle and running to not be terminal")
	}
	if !StateCompleted.Terminal() || !StateAborted.Terminal() {
		t.Error("expected completed and aborted to be terminal")
	}
}
