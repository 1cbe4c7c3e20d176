package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/platinummonkey/clerk-fapi-go/pkg/async"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// FileStore persists each key as a JSON file under a root directory. Writes
// go through a temp file and rename so readers never observe partial content.
// Files are created with 0600 permissions since stored values include
// authorization tokens.
type FileStore struct {
	dir    string
	logger *observability.Logger
}

// NewFileStore creates the root directory if needed and returns a store over
// it. A nil logger disables logging.
func NewFileStore(dir string, logger *observability.Logger) (*FileStore, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Get implements Store.Get.
func (s *FileStore) Get(_ context.Context, key string) (json.RawMessage, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, nil
}

// Set implements Store.Set.
func (s *FileStore) Set(_ context.Context, key string, value json.RawMessage) error {
	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", sanitizeKey(key), uuid.NewString()))
	if err := os.WriteFile(tmp, value, 0600); err != nil {
		return fmt.Errorf("failed to write temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Watch reports external changes to stored keys until ctx is canceled. Another
// process writing the same directory (a second app instance sharing state)
// triggers onChange with the affected key. Events for this process's own
// writes are delivered too; callers filter by comparing content.
func (s *FileStore) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	async.SafeGo(ctx, s.logger, 0, "file store watcher", func(ctx context.Context) error {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
					continue
				}
				onChange(strings.TrimSuffix(name, ".json"))
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				s.logger.WithError(err).Warn("File store watcher error")
			}
		}
	})
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps a store key to a safe file name. Distinct keys that differ
// only in unsafe characters may collide; the SDK's own keys never do.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
