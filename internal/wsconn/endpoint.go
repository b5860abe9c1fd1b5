package wsconn

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointPath is the socket path served next to the page.
const EndpointPath = "/_websocket"

// EndpointFromOrigin maps a page origin to its socket endpoint:
// http becomes ws, https becomes wss, and EndpointPath is appended.
// Origins that already use ws or wss keep their scheme. Any path, query or
// fragment on the origin is discarded.
func EndpointFromOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", fmt.Errorf("origin is required")
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid origin %q: missing host", origin)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid origin %q: unsupported scheme %q", origin, u.Scheme)
	}

	u.Path = EndpointPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
