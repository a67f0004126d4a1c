package cache

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileLedger is the append-only deletion ledger, one id per line, persisted
// next to the cache snapshot. Entries are never removed: deletion is
// terminal, and the ledger is the record that makes it stick.
type FileLedger struct {
	path string
	mu   sync.Mutex

	ids   []string
	index map[string]struct{}
}

func NewFileLedger(dir string) (*FileLedger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	l := &FileLedger{
		path:  filepath.Join(dir, "deleted.ledger"),
		index: make(map[string]struct{}),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open deletion ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		if _, seen := l.index[id]; seen {
			continue
		}
		l.ids = append(l.ids, id)
		l.index[id] = struct{}{}
	}
	return scanner.Err()
}

func (l *FileLedger) Append(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("ledger: empty id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.index[id]; seen {
		return nil // idempotent
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open deletion ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("append to deletion ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync deletion ledger: %w", err)
	}

	l.ids = append(l.ids, id)
	l.index[id] = struct{}{}
	return nil
}

func (l *FileLedger) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out, nil
}
