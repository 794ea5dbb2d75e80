package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swgoh/prereqbot/pkg/logger"
)

// ErrNotInitialized is returned by Current before the first successful load.
var ErrNotInitialized = errors.New("config not initialized")

// Store holds the current configuration. Readers never block on a reload:
// the value is swapped whole, so they observe either the old or the new one.
type Store struct {
	path    string
	current atomic.Pointer[Config]

	// serializes loads so two reloads cannot install out of order
	loadMu sync.Mutex

	debounce time.Duration
}

// NewStore creates a store backed by the file at path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{path: path, debounce: 250 * time.Millisecond}
}

// Path returns the file the store reads.
func (s *Store) Path() string { return s.path }

// Load reads the file and installs the result.
func (s *Store) Load() (Config, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	cfg, err := Read(s.path)
	if err != nil {
		return Config{}, err
	}
	s.current.Store(&cfg)
	return cfg, nil
}

// Reload re-reads the file. On failure the previously held configuration stays current.
func (s *Store) Reload() (Config, error) {
	return s.Load()
}

// Current returns the last successfully loaded configuration.
func (s *Store) Current() (Config, error) {
	cfg := s.current.Load()
	if cfg == nil {
		return Config{}, ErrNotInitialized
	}
	return *cfg, nil
}

// Watch reloads the configuration whenever its file is written, until ctx is done.
// The parent directory is watched so editors that replace the file by rename
// are still picked up.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger.InfoCF("config", "Watching configuration", map[string]interface{}{"path": abs})

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if _, err := s.Reload(); err != nil {
				logger.WarnCF("config", "Reload after file change failed, keeping previous configuration", map[string]interface{}{
					"error": err,
				})
				continue
			}
			logger.InfoCF("config", "Configuration reloaded from disk", map[string]interface{}{"path": abs})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnCF("config", "Watcher error", map[string]interface{}{"error": err})
		}
	}
}
