package server

import (
	"errors"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grantcarthew/spreadfire/internal/logging"
)

var errShuttingDown = errors.New("server is shutting down")

// peer is one socket connection.
type peer struct {
	id     string
	remote string
	conn   *websocket.Conn

	send     chan string   // outbound frames, bounded
	last     chan string   // final frame before a going-away close
	done     chan struct{} // closed when the peer leaves
	doneOnce sync.Once
}

func newPeer(conn *websocket.Conn, remote string, buffer int) *peer {
	return &peer{
		id:     uuid.NewString(),
		remote: remote,
		conn:   conn,
		send:   make(chan string, buffer),
		last:   make(chan string, 1),
		done:   make(chan struct{}),
	}
}

// offer queues text without blocking. It reports false when the queue is full.
func (p *peer) offer(text string) bool {
	select {
	case p.send <- text:
		return true
	default:
		return false
	}
}

// deliver queues text, waiting for room until the peer leaves.
func (p *peer) deliver(text string) bool {
	select {
	case p.send <- text:
		return true
	case <-p.done:
		return false
	}
}

// leave marks the peer as gone. Safe to call more than once.
func (p *peer) leave() {
	p.doneOnce.Do(func() { close(p.done) })
}

// hub tracks connected peers and fans broadcast frames out to them.
type hub struct {
	mu      sync.RWMutex
	peers   map[string]*peer
	closing bool
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		peers:  make(map[string]*peer),
		logger: logging.Component(&logger, "hub"),
	}
}

// add registers a peer. Every successful add must be paired with remove.
func (h *hub) add(p *peer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return errShuttingDown
	}
	h.peers[p.id] = p
	h.wg.Add(1)
	return nil
}

// remove unregisters a peer and releases anything waiting to deliver to it.
func (h *hub) remove(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p.id]
	delete(h.peers, p.id)
	h.mu.Unlock()

	p.leave()
	if ok {
		h.wg.Done()
	}
}

// broadcast offers text to every peer. Peers whose queue is full miss it.
func (h *hub) broadcast(text string) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.peers {
		if p.offer(text) {
			delivered++
			continue
		}
		dropped++
		h.logger.Warn().Str("peer", p.id).Msg("peer queue full, frame dropped")
	}
	return delivered, dropped
}

// count returns the number of connected peers.
func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// shutdown refuses new peers and hands every connected peer its final frame.
// It returns the number of peers notified.
func (h *hub) shutdown(text string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closing = true
	for _, p := range h.peers {
		select {
		case p.last <- text:
		default:
		}
	}
	return len(h.peers)
}

// closeNow drops every connection without a close handshake.
func (h *hub) closeNow() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.peers {
		if p.conn != nil {
			_ = p.conn.CloseNow()
		}
	}
}

// wait blocks until every added peer has been removed.
func (h *hub) wait() {
	h.wg.Wait()
}
