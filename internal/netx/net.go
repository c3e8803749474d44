// Package netx answers "is the remote store reachable" for the sync engine.
package netx

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// Checker is the connectivity probe consulted before every push or pull.
type Checker interface {
	Online(ctx context.Context) bool
}

// Probe dials a TCP address; reachable means online.
type Probe struct {
	Addr    string
	Timeout time.Duration

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewProbe(addr string, timeout time.Duration) *Probe {
	d := &net.Dialer{}
	return &Probe{Addr: addr, Timeout: timeout, dial: d.DialContext}
}

func (p *Probe) Online(ctx context.Context) bool {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	conn, err := p.dial(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

var defaultPorts = map[string]string{
	"libsql":     "443",
	"https":      "443",
	"wss":        "443",
	"http":       "80",
	"ws":         "80",
	"postgres":   "5432",
	"postgresql": "5432",
}

// CheckerFor returns a probe for the host in a remote database URL. URLs
// without a network host (SQLite files) are always reachable.
func CheckerFor(remoteURL string, timeout time.Duration) Checker {
	if !strings.Contains(remoteURL, "://") {
		return Always(true)
	}
	u, err := url.Parse(remoteURL)
	if err != nil || u.Hostname() == "" || strings.EqualFold(u.Scheme, "file") {
		return Always(true)
	}
	port := u.Port()
	if port == "" {
		port = defaultPorts[strings.ToLower(u.Scheme)]
	}
	if port == "" {
		port = "443"
	}
	return NewProbe(net.JoinHostPort(u.Hostname(), port), timeout)
}

// Always is a fixed answer.
type Always bool

func (a Always) Online(context.Context) bool { return bool(a) }

// Switch is a settable connectivity state.
type Switch struct {
	v atomic.Bool
}

func NewSwitch(online bool) *Switch {
	s := &Switch{}
	s.v.Store(online)
	return s
}

func (s *Switch) Set(online bool) { s.v.Store(online) }

func (s *Switch) Online(context.Context) bool { return s.v.Load() }
