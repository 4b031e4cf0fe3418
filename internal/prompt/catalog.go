package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize catalog watcher")

// Catalog holds instruction overrides loaded from a TOML file:
//
//	[fact_check]
//	en = "Analyze the following claim..."
//	ru = "..."
//
// Tables are request kinds, keys are language codes. Missing entries fall
// back to the built-in instruction.
type Catalog struct {
	path   string
	logger *logging.Logger

	mu      sync.RWMutex
	entries map[Kind]map[lang.Language]string

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
	reloaded chan struct{}
}

// LoadCatalog reads the catalog at path. A nil logger discards output.
func LoadCatalog(path string, logger *logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	entries, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		path:     path,
		logger:   logger,
		entries:  entries,
		stop:     make(chan struct{}),
		reloaded: make(chan struct{}, 1),
	}, nil
}

func readCatalog(path string) (map[Kind]map[lang.Language]string, error) {
	var raw map[string]map[string]string
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parsing prompt catalog %s: %w", path, err)
	}

	known := make(map[Kind]bool)
	for _, k := range Kinds() {
		known[k] = true
	}

	entries := make(map[Kind]map[lang.Language]string, len(raw))
	for table, byLang := range raw {
		kind := Kind(table)
		if !known[kind] {
			return nil, fmt.Errorf("prompt catalog %s: unknown kind %q", path, table)
		}
		m := make(map[lang.Language]string, len(byLang))
		for code, text := range byLang {
			l := lang.Language(code)
			if !l.Valid() {
				return nil, fmt.Errorf("prompt catalog %s: [%s] unsupported language %q", path, table, code)
			}
			if text = strings.TrimSpace(text); text != "" {
				m[l] = text
			}
		}
		entries[kind] = m
	}
	return entries, nil
}

// Path returns the catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Instruction returns the override for kind in l, if any.
func (c *Catalog) Instruction(kind Kind, l lang.Language) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[kind][l]
	return s, ok
}

// Reload re-reads the file. On failure the previous entries stay in effect.
func (c *Catalog) Reload(ctx context.Context) error {
	entries, err := readCatalog(c.path)
	if err != nil {
		c.logger.Warn(ctx, "prompt catalog reload failed, keeping previous version",
			zap.String("path", c.path), zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Info(ctx, "prompt catalog reloaded", zap.String("path", c.path), zap.Int("kinds", len(entries)))
	select {
	case c.reloaded <- struct{}{}:
	default:
	}
	return nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done or
// Stop is called. The parent directory is watched so editors that replace
// the file by rename are picked up.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(c.path), err)
	}
	c.watcher = watcher

	go c.processEvents(ctx)
	return nil
}

// Stop ends watching.
func (c *Catalog) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.watcher != nil {
			_ = c.watcher.Close()
		}
	})
}

// Reloaded signals after each successful reload. Signals are coalesced.
func (c *Catalog) Reloaded() <-chan struct{} {
	return c.reloaded
}

func (c *Catalog) processEvents(ctx context.Context) {
	target := filepath.Clean(c.path)
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = c.Reload(ctx)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn(ctx, "prompt catalog watcher error", zap.Error(err))
		}
	}
}

// CatalogFromFile loads path when it exists. An empty path disables the
// catalog; a configured path that does not exist is logged and the built-in
// instructions are used.
func CatalogFromFile(path string, logger *logging.Logger) (*Catalog, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if logger == nil {
			logger = logging.Nop()
		}
		logger.Warn(context.Background(), "prompt catalog not found, using built-in instructions",
			zap.String("path", path))
		return nil, nil
	}
	return LoadCatalog(path, logger)
}
