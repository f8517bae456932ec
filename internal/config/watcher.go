package config

import "sync"

// reloadBuffer bounds each subscriber's channel the same way
// snapshot.Watchdog does, so a slow subscriber cannot block Reload.
const reloadBuffer = 8

// Watcher fans a reloaded Config out to every subscriber, the config-side
// counterpart of original_source/executor-rs/src/config.rs's ConfigChange
// broadcast channel. There is no filesystem watch here: reload is driven
// by an explicit call to Reload (neither cmd/vaultd nor cmd/agentcore
// calls it), since nothing already pulled into this module watches
// files for us and a hand-rolled inotify poller would just be stdlib code
// pretending to be a library.
type Watcher struct {
	mu      sync.RWMutex
	current Config
	subs    map[chan Config]struct{}
}

// NewWatcher seeds the watcher with the config a service booted with.
func NewWatcher(initial Config) *Watcher {
	return &Watcher{current: initial, subs: make(map[chan Config]struct{})}
}

// Current returns the most recently applied Config.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe returns a channel that receives every future Reload. Callers
// should read from it promptly; a full channel drops the update rather
// than block Reload.
func (w *Watcher) Subscribe() <-chan Config {
	ch := make(chan Config, reloadBuffer)
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()
	return ch
}

// Unsubscribe stops and closes a channel previously returned by Subscribe.
func (w *Watcher) Unsubscribe(ch <-chan Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for c := range w.subs {
		if c == ch {
			delete(w.subs, c)
			close(c)
			return
		}
	}
}

// Reload validates next, and if it passes applies it as current and
// notifies every subscriber. An invalid config is rejected and the
// watcher keeps running on its prior config, matching
// ConfigValidator::validate's role of refusing a bad hot-reload rather
// than taking the service down.
func (w *Watcher) Reload(next Config) error {
	if err := next.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	w.current = next
	subs := make([]chan Config, 0, len(w.subs))
	for ch := range w.subs {
		subs = append(subs, ch)
	}
	w.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- next:
		default:
		}
	}
	return nil
}
