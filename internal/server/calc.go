package server

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// RunCalculationPrefix marks a frame that (re)starts the sender's calculation.
const RunCalculationPrefix = "[Run calculation]"

// calculations runs at most one timed calculation per peer.
type calculations struct {
	clock  clock.Clock
	logger zerolog.Logger

	mu       sync.Mutex
	duration time.Duration
	running  map[string]*calculation
	seq      uint64 // calculations started so far
}

type calculation struct {
	seq   uint64
	timer *clock.Timer
}

func newCalculations(clk clock.Clock, d time.Duration, logger zerolog.Logger) *calculations {
	return &calculations{
		clock:    clk,
		duration: d,
		running:  make(map[string]*calculation),
		logger:   logger,
	}
}

// start aborts the peer's running calculation, if any, and starts a new one.
func (c *calculations) start(p *peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abortLocked(p.id)

	c.seq++
	seq := c.seq
	c.running[p.id] = &calculation{
		seq: seq,
		timer: c.clock.AfterFunc(c.duration, func() {
			c.finish(p, seq)
		}),
	}
	c.logger.Info().Str("peer", p.id).Dur("duration", c.duration).Msg("calc started")
}

// finish reports a completed calculation to its peer.
func (c *calculations) finish(p *peer, seq uint64) {
	c.mu.Lock()
	cur, ok := c.running[p.id]
	if !ok || cur.seq != seq {
		c.mu.Unlock()
		return
	}
	delete(c.running, p.id)
	now := c.clock.Now()
	c.mu.Unlock()

	if !p.deliver("calculation done at " + now.Format(time.RFC3339Nano)) {
		c.logger.Debug().Str("peer", p.id).Msg("calc finished after peer left")
		return
	}
	c.logger.Debug().Str("peer", p.id).Msg("calc done")
}

// abort stops the peer's running calculation.
func (c *calculations) abort(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked(peerID)
}

func (c *calculations) abortLocked(peerID string) {
	calc, ok := c.running[peerID]
	if !ok {
		return
	}
	calc.timer.Stop()
	delete(c.running, peerID)
	c.logger.Debug().Str("peer", peerID).Msg("calc aborted")
}

// abortAll stops every running calculation.
func (c *calculations) abortAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.running {
		c.abortLocked(id)
	}
}

func (c *calculations) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.running)
}

func (c *calculations) startedTotal() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *calculations) setDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = d
}

func (c *calculations) getDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}
