package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// peerWriteTimeout bounds a single outbound frame.
const peerWriteTimeout = 5 * time.Second

// handleWebSocket upgrades the request and runs the peer until either
// direction fails. Browsers must come from the page's own origin; clients
// that send no Origin header are accepted.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	p := newPeer(conn, r.RemoteAddr, s.config.PeerBuffer)
	if err := s.hub.add(p); err != nil {
		_ = conn.Close(websocket.StatusGoingAway, ShutdownMessage)
		return
	}
	defer s.hub.remove(p)
	defer s.calcs.abort(p.id)

	logger := s.logger.With().Str("peer", p.id).Str("remote", p.remote).Logger()
	logger.Info().Msg("websocket join")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		defer cancel()
		if err := s.writePump(ctx, p); err != nil && ctx.Err() == nil {
			logger.Debug().Err(err).Msg("write side ended")
		}
	}()

	err = s.readPump(ctx, p)
	cancel()
	<-writeDone

	if err != nil && ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
		logger.Debug().Err(err).Msg("read side ended")
	}
	logger.Info().Msg("websocket disconnected")
}

// readPump handles inbound frames until the connection fails.
func (s *Server) readPump(ctx context.Context, p *peer) error {
	for {
		typ, data, err := p.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		text := string(data)
		if strings.HasPrefix(text, RunCalculationPrefix) {
			s.calcs.start(p)
			continue
		}
		s.hub.broadcast(text)
	}
}

// writePump sends queued frames to the peer. After the hub hands it a final
// frame it flushes the queue, sends that frame and closes with going-away.
func (s *Server) writePump(ctx context.Context, p *peer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case text := <-p.send:
			if err := writeText(ctx, p.conn, text); err != nil {
				return err
			}

		case text := <-p.last:
			for flushed := false; !flushed; {
				select {
				case queued := <-p.send:
					if err := writeText(ctx, p.conn, queued); err != nil {
						return err
					}
				default:
					flushed = true
				}
			}
			if err := writeText(ctx, p.conn, text); err != nil {
				return err
			}
			return p.conn.Close(websocket.StatusGoingAway, text)
		}
	}
}

func writeText(ctx context.Context, conn *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(ctx, peerWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(text))
}
