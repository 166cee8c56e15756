package config

import (
	"log/slog"
	"sync/atomic"
)

// Accessor returns the current configuration. Injected into components that
// need hot-reloaded values instead of handing them a captured snapshot.
type Accessor func() *Config

// Loader holds the active config and swaps it atomically on reload, so
// in-flight tasks keep a consistent snapshot while new tasks see updates.
type Loader struct {
	path   string
	ptr    atomic.Pointer[Config]
	logger *slog.Logger
}

// NewLoader loads path and returns a Loader for subsequent reloads.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	l := &Loader{path: path, logger: logger}
	l.ptr.Store(cfg)
	return l, nil
}

// Get returns the current config snapshot.
func (l *Loader) Get() *Config {
	return l.ptr.Load()
}

// Accessor returns a function view of Get.
func (l *Loader) Accessor() Accessor {
	return l.Get
}

// Reload re-reads the config file. On failure the previous config stays
// active and the error is returned for logging.
func (l *Loader) Reload() error {
	cfg, err := Load(l.path)
	if err != nil {
		return err
	}
	l.ptr.Store(cfg)
	l.logger.Info("configuration reloaded", "path", l.path)
	return nil
}
