package wsconn

import "errors"

var (
	// ErrNeverConnected is returned by Send when no connection has ever opened.
	ErrNeverConnected = errors.New("socket does not exist")

	// ErrNotConnected is returned by Send while the manager is reconnecting.
	ErrNotConnected = errors.New("socket is not open")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("manager is closed")
)
