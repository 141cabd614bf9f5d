package agent

import (
	"context"
	"testing"
	"time"
)

func TestDeliverSendsWhenConsumerReads(t *testing.T) {
	out := make(chan StreamChunk, 1)
	if !deliver(context.Background(), out, StreamChunk{Content: "x"}) {
		t.Fatal("deliver() = false with buffer space available")
	}
	got := <-out
	if got.Content != "x" {
		t.Errorf("delivered chunk = %+v", got)
	}
}

func TestDeliverReturnsOnCancelledConsumer(t *testing.T) {
	// Full buffer and no reader models a caller that cancelled and
	// walked away mid-stream; deliver must not block on the terminal
	// chunk.
	out := make(chan StreamChunk, 1)
	out <- StreamChunk{Content: "unread"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan bool, 1)
	go func() {
		done <- deliver(ctx, out, StreamChunk{Done: true})
	}()

	select {
	case sent := <-done:
		if sent {
			t.Error("deliver() = true, want false for a cancelled consumer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver blocked on a full channel after cancellation")
	}
}
