package server

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHub_BroadcastDropsWhenQueueFull(t *testing.T) {
	h := newHub(zerolog.Nop())

	slow := newPeer(nil, "slow", 2)
	fast := newPeer(nil, "fast", 8)
	for _, p := range []*peer{slow, fast} {
		if err := h.add(p); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	defer h.remove(slow)
	defer h.remove(fast)

	var dropped int
	for _, text := range []string{"a", "b", "c"} {
		_, d := h.broadcast(text)
		dropped += d
	}

	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(slow.send) != 2 {
		t.Errorf("slow peer queued %d frames, want 2", len(slow.send))
	}
	if len(fast.send) != 3 {
		t.Errorf("fast peer queued %d frames, want 3", len(fast.send))
	}
	for _, want := range []string{"a", "b"} {
		if got := <-slow.send; got != want {
			t.Errorf("slow peer got %q, want %q", got, want)
		}
	}
}

func TestHub_ShutdownRefusesNewPeers(t *testing.T) {
	h := newHub(zerolog.Nop())

	p := newPeer(nil, "one", 1)
	if err := h.add(p); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if n := h.shutdown(ShutdownMessage); n != 1 {
		t.Errorf("shutdown notified %d peers, want 1", n)
	}
	select {
	case got := <-p.last:
		if got != ShutdownMessage {
			t.Errorf("final frame = %q, want %q", got, ShutdownMessage)
		}
	default:
		t.Error("peer did not receive its final frame")
	}

	if err := h.add(newPeer(nil, "late", 1)); !errors.Is(err, errShuttingDown) {
		t.Errorf("add after shutdown = %v, want errShuttingDown", err)
	}

	done := make(chan struct{})
	go func() {
		h.wait()
		close(done)
	}()
	h.remove(p)
	h.remove(p)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after the last peer left")
	}
	if h.count() != 0 {
		t.Errorf("count = %d, want 0", h.count())
	}
}

func TestPeer_DeliverUnblocksOnLeave(t *testing.T) {
	p := newPeer(nil, "full", 1)
	if !p.offer("first") {
		t.Fatal("offer into empty queue failed")
	}
	if p.offer("second") {
		t.Fatal("offer into full queue succeeded")
	}

	result := make(chan bool, 1)
	go func() { result <- p.deliver("blocked") }()

	select {
	case <-result:
		t.Fatal("deliver returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	p.leave()
	p.leave()

	select {
	case ok := <-result:
		if ok {
			t.Error("deliver reported success after the peer left")
		}
	case <-time.After(time.Second):
		t.Fatal("deliver still blocked after leave")
	}
}
