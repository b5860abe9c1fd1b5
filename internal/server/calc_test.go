package server

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

func expectFrame(t *testing.T, p *peer, timeout time.Duration) string {
	t.Helper()
	select {
	case text := <-p.send:
		return text
	case <-time.After(timeout):
		t.Fatal("timeout waiting for frame")
		return ""
	}
}

func expectNoFrame(t *testing.T, p *peer, wait time.Duration) {
	t.Helper()
	select {
	case text := <-p.send:
		t.Fatalf("unexpected frame %q", text)
	case <-time.After(wait):
	}
}

func TestCalculations_ReportsAfterDuration(t *testing.T) {
	mock := clock.NewMock()
	c := newCalculations(mock, 5*time.Second, zerolog.Nop())
	p := newPeer(nil, "calc", 1)
	defer p.leave()

	c.start(p)
	if c.count() != 1 {
		t.Fatalf("count = %d, want 1", c.count())
	}

	mock.Add(4999 * time.Millisecond)
	expectNoFrame(t, p, 50*time.Millisecond)

	mock.Add(time.Millisecond)
	got := expectFrame(t, p, time.Second)
	want := "calculation done at " + mock.Now().Format(time.RFC3339Nano)
	if got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}

	waitForCondition(t, time.Second, func() bool { return c.count() == 0 })
}

func TestCalculations_RestartAbortsPrevious(t *testing.T) {
	mock := clock.NewMock()
	c := newCalculations(mock, 5*time.Second, zerolog.Nop())
	p := newPeer(nil, "calc", 4)
	defer p.leave()

	c.start(p)
	mock.Add(3 * time.Second)
	c.start(p)

	// The first calculation would have finished here.
	mock.Add(3 * time.Second)
	expectNoFrame(t, p, 50*time.Millisecond)

	mock.Add(2 * time.Second)
	text := expectFrame(t, p, time.Second)
	if !strings.HasPrefix(text, "calculation done at ") {
		t.Errorf("frame = %q", text)
	}
	expectNoFrame(t, p, 50*time.Millisecond)

	if got := c.startedTotal(); got != 2 {
		t.Errorf("startedTotal = %d, want 2", got)
	}
}

func TestCalculations_PeersAreIndependent(t *testing.T) {
	mock := clock.NewMock()
	c := newCalculations(mock, time.Second, zerolog.Nop())
	a := newPeer(nil, "a", 1)
	b := newPeer(nil, "b", 1)
	defer a.leave()
	defer b.leave()

	c.start(a)
	c.start(b)
	if c.count() != 2 {
		t.Fatalf("count = %d, want 2", c.count())
	}

	c.abort(b.id)
	mock.Add(time.Second)

	expectFrame(t, a, time.Second)
	expectNoFrame(t, b, 50*time.Millisecond)
}

func TestCalculations_AbortAllAndSetDuration(t *testing.T) {
	mock := clock.NewMock()
	c := newCalculations(mock, time.Second, zerolog.Nop())
	p := newPeer(nil, "calc", 1)
	defer p.leave()

	c.start(p)
	c.abortAll()
	if c.count() != 0 {
		t.Errorf("count after abortAll = %d, want 0", c.count())
	}
	mock.Add(time.Second)
	expectNoFrame(t, p, 50*time.Millisecond)

	c.setDuration(3 * time.Second)
	if got := c.getDuration(); got != 3*time.Second {
		t.Errorf("duration = %v, want 3s", got)
	}
	c.start(p)
	mock.Add(2 * time.Second)
	expectNoFrame(t, p, 50*time.Millisecond)
	mock.Add(time.Second)
	expectFrame(t, p, time.Second)
}

func TestCalculations_PeerLeftBeforeDelivery(t *testing.T) {
	mock := clock.NewMock()
	c := newCalculations(mock, time.Second, zerolog.Nop())
	p := newPeer(nil, "gone", 1)
	p.offer("filler")

	c.start(p)
	p.leave()
	mock.Add(time.Second)

	// finish must not block on the full queue of a departed peer.
	waitForCondition(t, time.Second, func() bool { return c.count() == 0 })
}
