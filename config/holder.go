// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadRecorder counts reload attempts.
type ReloadRecorder interface {
	RecordReload(err error)
}

// restartFields change only when the process starts again. The client and
// metrics registry are built once per process.
var restartFields = []string{
	"metrics.enabled",
	"metrics.namespace",
	"metrics.textfile",
}

// Holder keeps the live configuration of a long-running invocation and
// swaps it when the backing file changes.
type Holder struct {
	path    string
	logger  zerolog.Logger
	current atomic.Pointer[Config]

	mu          sync.Mutex
	recorder    ReloadRecorder
	subscribers []func(*Config)
	watcher     *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a holder serving it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	h := &Holder{
		path:   abs,
		logger: logger.With().Str("config", abs).Logger(),
		done:   make(chan struct{}),
	}
	h.current.Store(cfg)
	return h, nil
}

// Get returns the configuration in effect. Safe for concurrent use.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// SetRecorder installs r as the reload counter.
func (h *Holder) SetRecorder(r ReloadRecorder) {
	h.mu.Lock()
	h.recorder = r
	h.mu.Unlock()
}

// Subscribe adds fn to the callbacks run after each successful reload.
func (h *Holder) Subscribe(fn func(*Config)) {
	h.mu.Lock()
	h.subscribers = append(h.subscribers, fn)
	h.mu.Unlock()
}

// Reload re-reads the file. On failure the previous configuration stays in
// effect and the error is returned.
func (h *Holder) Reload() error {
	next, err := Load(h.path)

	h.mu.Lock()
	rec := h.recorder
	subs := slices.Clone(h.subscribers)
	h.mu.Unlock()

	if rec != nil {
		rec.RecordReload(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload rejected")
		return fmt.Errorf("reload config: %w", err)
	}

	prev := h.current.Swap(next)
	changed := Diff(prev, next)
	h.logger.Info().Strs("changed", changed).Msg("config reloaded")
	if pending := RequiresRestart(changed); len(pending) > 0 {
		h.logger.Warn().Strs("fields", pending).Msg("changes take effect after restart")
	}

	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// WatchFile reloads whenever the file is written or replaced. The parent
// directory is watched so editors that save by rename are seen.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()

	go h.watch(w)
	h.logger.Debug().Msg("watching config file")
	return nil
}

// ReloadOn reloads whenever one of sigs arrives, until Stop.
func (h *Holder) ReloadOn(sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case sig := <-ch:
				h.logger.Info().Str("signal", sig.String()).Msg("reload requested")
				_ = h.Reload()
			case <-h.done:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. Safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		if h.watcher != nil {
			h.watcher.Close()
		}
		h.mu.Unlock()
	})
}

func (h *Holder) watch(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if h.relevant(ev) {
				_ = h.Reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher")
		case <-h.done:
			return
		}
	}
}

func (h *Holder) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != h.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Diff names the dotted fields that differ between a and b.
func Diff(a, b *Config) []string {
	var out []string
	add := func(field string, differ bool) {
		if differ {
			out = append(out, field)
		}
	}
	add("endpoint.url", a.Endpoint.URL != b.Endpoint.URL)
	add("client.timeout", a.Client.Timeout != b.Client.Timeout)
	add("client.max_idle_conns", a.Client.MaxIdleConns != b.Client.MaxIdleConns)
	add("client.idle_conn_timeout", a.Client.IdleConnTimeout != b.Client.IdleConnTimeout)
	add("compression.disabled", a.Compression.Disabled != b.Compression.Disabled)
	add("compression.min_size_bytes", a.Compression.MinSizeBytes != b.Compression.MinSizeBytes)
	add("protocol.preserve_header_values", a.Protocol.PreserveHeaderValues != b.Protocol.PreserveHeaderValues)
	add("protocol.idempotency_seed", a.Protocol.IdempotencySeed != b.Protocol.IdempotencySeed)
	add("logging.level", a.Logging.Level != b.Logging.Level)
	add("logging.format", a.Logging.Format != b.Logging.Format)
	add("metrics.enabled", a.Metrics.Enabled != b.Metrics.Enabled)
	add("metrics.namespace", a.Metrics.Namespace != b.Metrics.Namespace)
	add("metrics.textfile", a.Metrics.Textfile != b.Metrics.Textfile)
	return out
}

// RequiresRestart filters changed down to the fields a reload cannot apply.
func RequiresRestart(changed []string) []string {
	var out []string
	for _, f := range changed {
		if slices.Contains(restartFields, f) {
			out = append(out, f)
		}
	}
	return out
}
