package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harborpoint/leadsync/internal/entity"
)

// FileCache is the local snapshot store: one JSON file, replaced atomically
// on every write. It is never authoritative; losing it only costs a refresh.
type FileCache struct {
	path string
	mu   sync.Mutex
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{path: filepath.Join(dir, "leads.json")}, nil
}

func (c *FileCache) Read() ([]*entity.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache snapshot: %w", err)
	}

	var leads []*entity.Lead
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("decode cache snapshot: %w", err)
	}
	return leads, nil
}

func (c *FileCache) Write(leads []*entity.Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache snapshot: %w", err)
	}
	return nil
}
