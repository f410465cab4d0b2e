package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// ListenerAddr returns the host:port of an http(s) base URL, filling in the
// scheme's default port.
func ListenerAddr(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("base url %q has no host", baseURL)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Listening reports whether anything accepts TCP connections at addr.
// A refused or timed out dial means the backend process is not started,
// which is a different situation from a backend that answers unhealthy.
func Listening(ctx context.Context, addr string, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
