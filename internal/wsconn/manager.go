package wsconn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/grantcarthew/spreadfire/internal/logging"
)

const (
	// DefaultReconnectDelay is the fixed wait between a lost connection and the next attempt.
	DefaultReconnectDelay = 1000 * time.Millisecond

	// DefaultWriteTimeout bounds Send when the caller supplies no context.
	DefaultWriteTimeout = 5 * time.Second
)

// MessageHandler receives the payload of every inbound text frame.
type MessageHandler func(text string)

// Config holds manager configuration.
type Config struct {
	URL            string        // Socket endpoint (see EndpointFromOrigin)
	ReconnectDelay time.Duration // Fixed retry delay (0 = DefaultReconnectDelay)
	WriteTimeout   time.Duration // Send timeout (0 = DefaultWriteTimeout)
	Dialer         Dialer        // Transport factory (nil = DefaultDialer)
	Clock          clock.Clock   // Time source for the retry timer (nil = wall clock)
	Logger         *zerolog.Logger

	// OnStateChange observes every state transition. It is called with the
	// manager's lock held and must not call back into the Manager.
	OnStateChange func(State)
}

// Manager owns at most one live connection to a fixed endpoint and
// re-establishes it after every loss, forever, with a fixed delay.
//
// Inbound text frames are passed to the MessageHandler on the connection's
// read goroutine, one at a time, in arrival order. The handler must not call
// Close.
type Manager struct {
	cfg     Config
	handler MessageHandler
	clock   clock.Clock
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	conn     Conn
	gen      uint64 // bumped by every start; events from older generations are ignored
	retry    *clock.Timer
	retryGen uint64
	closed   bool

	opens          int
	reconnectCount int
	lastOpen       time.Time
	lastErr        error

	writeMu sync.Mutex
}

// New creates a manager and immediately starts the first connection attempt.
func New(cfg Config, handler MessageHandler) (*Manager, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = DefaultDialer
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:     cfg,
		handler: handler,
		clock:   cfg.Clock,
		logger:  logging.Component(cfg.Logger, "wsconn").With().Str("url", cfg.URL).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateConnecting,
	}

	m.mu.Lock()
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(StateConnecting)
	}
	m.startLocked()
	m.mu.Unlock()

	return m, nil
}

// URL returns the endpoint the manager connects to.
func (m *Manager) URL() string {
	return m.cfg.URL
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Info returns connection health information for status reporting.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := Info{
		State:          m.state,
		StateString:    m.state.String(),
		URL:            m.cfg.URL,
		EverConnected:  m.opens > 0,
		Opens:          m.opens,
		ReconnectCount: m.reconnectCount,
		LastOpen:       m.lastOpen,
	}
	if m.lastErr != nil {
		info.LastError = m.lastErr.Error()
	}
	return info
}

// Send writes text as a single frame on the live connection.
// Uses the default write timeout.
func (m *Manager) Send(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.WriteTimeout)
	defer cancel()
	return m.SendContext(ctx, text)
}

// SendContext writes text as a single frame on the live connection.
//
// Nothing is queued: ErrNeverConnected is returned when no connection has
// opened yet and ErrNotConnected while a reconnect is pending. A failed write
// tears the connection down, which schedules a reconnect.
func (m *Manager) SendContext(ctx context.Context, text string) error {
	m.mu.Lock()
	closed, state, conn, opens := m.closed, m.state, m.conn, m.opens
	m.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case opens == 0:
		m.logger.Error().Msg(ErrNeverConnected.Error())
		return ErrNeverConnected
	case state != StateOpen || conn == nil:
		m.logger.Warn().Str("state", state.String()).Msg("socket is not open, message dropped")
		return ErrNotConnected
	}

	m.writeMu.Lock()
	err := conn.Write(ctx, websocket.MessageText, []byte(text))
	m.writeMu.Unlock()
	if err != nil {
		m.logger.Warn().Err(err).Msg("send failed")
		_ = conn.Close(websocket.StatusInternalError, "write failed")
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close stops reconnecting, closes the live connection and waits for the
// manager's goroutines to exit. Calling Close more than once is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	conn := m.conn
	m.conn = nil
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	m.cancel()
	m.wg.Wait()

	m.logger.Debug().Msg("manager closed")
	return err
}

// startLocked replaces the current connection with a new attempt.
func (m *Manager) startLocked() {
	if m.conn != nil {
		_ = m.conn.Close(websocket.StatusNormalClosure, "replaced")
		m.conn = nil
	}

	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnecting)

	m.wg.Add(1)
	go m.dial(gen)
}

// dial performs one connection attempt for generation gen.
func (m *Manager) dial(gen uint64) {
	defer m.wg.Done()

	conn, err := m.cfg.Dialer(m.ctx, m.cfg.URL)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "replaced")
		}
		return
	}
	if err != nil {
		m.lostLocked(gen, err)
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.opens++
	m.reconnectCount = 0
	m.lastOpen = m.clock.Now()
	m.lastErr = nil
	m.setStateLocked(StateOpen)
	m.logger.Info().Msg("connection open")

	m.wg.Add(1)
	m.mu.Unlock()

	go m.readLoop(gen, conn)
}

// readLoop forwards text frames to the handler until the connection fails.
func (m *Manager) readLoop(gen uint64, conn Conn) {
	defer m.wg.Done()

	for {
		typ, data, err := conn.Read(m.ctx)
		if err != nil {
			m.mu.Lock()
			m.lostLocked(gen, err)
			m.mu.Unlock()
			return
		}

		if typ != websocket.MessageText {
			m.logger.Debug().Int("bytes", len(data)).Msg("ignoring binary frame")
			continue
		}

		if !m.isCurrent(gen) {
			return
		}
		m.handler(string(data))
	}
}

// isCurrent reports whether gen is the live generation.
func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && gen == m.gen
}

// lostLocked records the loss of generation gen and (re)schedules the retry.
// Repeated losses of the same generation push the retry out instead of
// adding a second one.
func (m *Manager) lostLocked(gen uint64, err error) {
	if m.closed || gen != m.gen {
		return
	}

	m.lastErr = err
	if m.state != StateClosedPendingRetry {
		m.reconnectCount++
		m.logger.Info().Err(err).Int("attempt", m.reconnectCount).Msg("connection lost, reconnecting...")
	}
	m.setStateLocked(StateClosedPendingRetry)
	m.scheduleLocked()
}

// scheduleLocked cancels any pending retry and schedules exactly one new one.
func (m *Manager) scheduleLocked() {
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retryGen++
	id := m.retryGen
	m.retry = m.clock.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.fireRetry(id)
	})
}

// fireRetry starts a new attempt unless the timer was superseded.
func (m *Manager) fireRetry(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || id != m.retryGen {
		return
	}
	m.retry = nil
	m.startLocked()
}

// pendingRetry reports whether a retry timer is scheduled.
func (m *Manager) pendingRetry() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retry != nil
}

// setStateLocked transitions to s and notifies the observer.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(s)
	}
}
