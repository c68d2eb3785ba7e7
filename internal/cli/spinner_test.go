package cli

import (
	"context"
	"testing"
)

func TestSpinner_Cancelled(t *testing.T) {
	sp := newSpinnerWithContext(context.Background(), "solving")
	sp.Start()
	sp.Stop()
	if sp.Cancelled() {
		t.Error("a completed spinner should not report cancellation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sp = newSpinnerWithContext(ctx, "solving")
	sp.Start()
	cancel()
	sp.Stop()
	if !sp.Cancelled() {
		t.Error("an interrupted spinner should report cancellation")
	}
}
