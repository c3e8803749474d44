package netx

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	p := NewProbe(ln.Addr().String(), time.Second)
	assert.True(t, p.Online(context.Background()))

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	assert.False(t, NewProbe(addr, 200*time.Millisecond).Online(context.Background()))
}

func TestProbe_DialSeam(t *testing.T) {
	var gotAddr string
	p := NewProbe("db.example:443", time.Second)
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		gotAddr = addr
		c1, c2 := net.Pipe()
		_ = c2.Close()
		return c1, nil
	}
	assert.True(t, p.Online(context.Background()))
	assert.Equal(t, "db.example:443", gotAddr)
}

func TestCheckerFor(t *testing.T) {
	tests := []struct {
		url  string
		addr string
	}{
		{"libsql://shop-acme.turso.io", "shop-acme.turso.io:443"},
		{"https://shop-acme.turso.io", "shop-acme.turso.io:443"},
		{"postgres://u:p@db.local/repairs", "db.local:5432"},
		{"postgres://u:p@db.local:6543/repairs", "db.local:6543"},
	}
	for _, tc := range tests {
		c := CheckerFor(tc.url, time.Second)
		p, ok := c.(*Probe)
		require.True(t, ok, tc.url)
		assert.Equal(t, tc.addr, p.Addr)
	}

	assert.Equal(t, Always(true), CheckerFor("/var/lib/remote.db", time.Second))
	assert.Equal(t, Always(true), CheckerFor("file:/var/lib/remote.db", time.Second))
	assert.Equal(t, Always(true), CheckerFor("file:///var/lib/remote.db", time.Second))
	assert.Equal(t, Always(true), CheckerFor("file://nas/shared/remote.db", time.Second))
}

func TestSwitch(t *testing.T) {
	s := NewSwitch(false)
	assert.False(t, s.Online(context.Background()))
	s.Set(true)
	assert.True(t, s.Online(context.Background()))
}

func TestWatcher_ReportsChanges(t *testing.T) {
	probe := NewSwitch(true)
	var mu sync.Mutex
	var seen []bool
	w := NewWatcher(probe, time.Hour, func(online bool) {
		mu.Lock()
		seen = append(seen, online)
		mu.Unlock()
	})
	ctx := context.Background()

	assert.True(t, w.Online(ctx))
	w.Check(ctx)
	probe.Set(false)
	assert.True(t, w.Online(ctx), "cached until the next poll")
	w.Check(ctx)
	assert.False(t, w.Online(ctx))
	probe.Set(true)
	w.Check(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, seen)
}

func TestWatcher_RunStopsWithContext(t *testing.T) {
	probe := NewSwitch(false)
	w := NewWatcher(probe, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	probe.Set(true)
	assert.Eventually(t, func() bool { return w.Online(context.Background()) }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
