package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce collapses bursts of write events from editors into one reload.
const reloadDebounce = 200 * time.Millisecond

// TenantFile is the on-disk shape of the tenant settings file.
//
//	tenants:
//	  acme:
//	    chat_model: gpt-4o-mini
//	    top_k: 8
type TenantFile struct {
	Tenants map[string]Overrides `yaml:"tenants"`
}

// TenantSettings serves per-tenant overrides loaded from a YAML file.
// It is safe for concurrent use; Watch swaps the table on file changes.
type TenantSettings struct {
	path    string
	mu      sync.RWMutex
	tenants map[string]Overrides
}

// NewStaticTenantSettings returns tenant settings backed by an in-memory table.
func NewStaticTenantSettings(tenants map[string]Overrides) *TenantSettings {
	if tenants == nil {
		tenants = map[string]Overrides{}
	}
	return &TenantSettings{tenants: tenants}
}

// LoadTenantSettings reads the tenant settings file at path.
// An empty path yields an empty table.
func LoadTenantSettings(path string) (*TenantSettings, error) {
	ts := &TenantSettings{path: path, tenants: map[string]Overrides{}}
	if path == "" {
		return ts, nil
	}
	if err := ts.Reload(); err != nil {
		return nil, err
	}
	return ts, nil
}

// ParseTenantFile decodes tenant settings YAML.
func ParseTenantFile(data []byte) (TenantFile, error) {
	var f TenantFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return TenantFile{}, fmt.Errorf("failed to parse tenant settings: %w", err)
	}
	if f.Tenants == nil {
		f.Tenants = map[string]Overrides{}
	}
	return f, nil
}

// Reload re-reads the file. On error the previous table is kept.
func (t *TenantSettings) Reload() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("failed to read tenant settings: %w", err)
	}
	f, err := ParseTenantFile(data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.tenants = f.Tenants
	t.mu.Unlock()
	return nil
}

// ForTenant returns a copy of the overrides for tenantID, or nil when the
// tenant has none.
func (t *TenantSettings) ForTenant(tenantID string) *Overrides {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.tenants[tenantID]
	if !ok {
		return nil
	}
	return &o
}

// Watch reloads the file whenever it changes until ctx is cancelled.
// The parent directory is watched so that atomic renames by editors are seen.
func (t *TenantSettings) Watch(ctx context.Context, logger *slog.Logger) error {
	if t.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		return fmt.Errorf("failed to watch tenant settings: %w", err)
	}

	target := filepath.Clean(t.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := t.Reload(); err != nil {
				logger.Warn("tenant settings reload failed, keeping previous", "path", t.path, "error", err)
				continue
			}
			logger.Info("tenant settings reloaded", "path", t.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("tenant settings watcher error", "error", err)
		}
	}
}
