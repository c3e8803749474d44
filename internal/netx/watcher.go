package netx

import (
	"context"
	"sync"
	"time"
)

// Watcher polls a Checker and remembers the last answer, so callers on the
// hot path read a cached state instead of dialing.
type Watcher struct {
	probe    Checker
	interval time.Duration
	onChange func(online bool)

	state Switch
	once  sync.Once

	mu    sync.Mutex
	known bool
}

// NewWatcher builds a watcher. onChange, if set, is called from the polling
// goroutine on the first observation and on every flip afterwards.
func NewWatcher(probe Checker, interval time.Duration, onChange func(online bool)) *Watcher {
	return &Watcher{probe: probe, interval: interval, onChange: onChange}
}

// Online returns the last observed state. Before the first poll it asks the
// probe directly.
func (w *Watcher) Online(ctx context.Context) bool {
	w.once.Do(func() { w.Check(ctx) })
	return w.state.Online(ctx)
}

// Check polls once and records the result.
func (w *Watcher) Check(ctx context.Context) bool {
	online := w.probe.Online(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.state.Online(ctx)
	w.state.Set(online)
	if w.onChange != nil && (!w.known || prev != online) {
		w.onChange(online)
	}
	w.known = true
	return online
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.once.Do(func() { w.Check(ctx) })

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Check(ctx)
		}
	}
}
