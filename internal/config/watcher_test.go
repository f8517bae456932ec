package config

import "testing"

func baseConfig() Config {
	return Config{Executor: DefaultExecutorConfig(), Safety: SafetyConfig{RiskThreshold: 0.7, FilterSensitivity: 1.0}}
}

func TestWatcherCurrentReturnsSeedConfig(t *testing.T) {
	w := NewWatcher(baseConfig())
	if w.Current().Executor.MaxMemoryMB != 512 {
		t.Fatalf("expected the seeded config's memory cap, got %d", w.Current().Executor.MaxMemoryMB)
	}
}

func TestReloadRejectsInvalidConfigAndKeepsPrior(t *testing.T) {
	w := NewWatcher(baseConfig())
	bad := baseConfig()
	bad.Executor.MaxProcesses = 0
	if err := w.Reload(bad); err == nil {
		t.Fatal("expected Reload to reject an invalid config")
	}
	if w.Current().Executor.MaxProcesses == 0 {
		t.Fatal("expected the prior valid config to remain current after a rejected reload")
	}
}

func TestReloadNotifiesSubscribers(t *testing.T) {
	w := NewWatcher(baseConfig())
	ch := w.Subscribe()

	next := baseConfig()
	next.Executor.MaxMemoryMB = 1024
	if err := w.Reload(next); err != nil {
		t.Fatalf("expected a valid reload to succeed, got %v", err)
	}

	select {
	case got := <-ch:
		if got.Executor.MaxMemoryMB != 1024 {
			t.Fatalf("expected the subscriber to receive the reloaded config, got %d", got.Executor.MaxMemoryMB)
		}
	default:
		t.Fatal("expected a notification on the subscribed channel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	w := NewWatcher(baseConfig())
	ch := w.Subscribe()
	w.Unsubscribe(ch)

	if err := w.Reload(baseConfig()); err != nil {
		t.Fatalf("expected reload to succeed, got %v", err)
	}
	if _, open := <-ch; open {
		t.Fatal("expected the unsubscribed channel to be closed")
	}
}
