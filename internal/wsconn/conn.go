// Package wsconn keeps a single WebSocket connection to a fixed endpoint
// alive, replacing it after every loss.
package wsconn

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
)

// Conn defines the interface for a WebSocket connection.
// This abstraction enables testing with mock connections.
type Conn interface {
	// Read reads a message from the connection.
	// Returns message type, payload, and any error.
	Read(ctx context.Context) (websocket.MessageType, []byte, error)

	// Write writes a message to the connection.
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error

	// Close closes the connection with a status code and reason.
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a new connection to url. A returned connection has completed
// its handshake.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DefaultDialer dials url with github.com/coder/websocket.
func DefaultDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return conn, nil
}
