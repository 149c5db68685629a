package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsdesk/internal/models"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore writes one JSON file per list under a directory. A sibling
// .lock file serializes writers across processes, and writes go through a
// temp file plus rename so readers never observe a partial snapshot.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(list string) string {
	return filepath.Join(f.dir, list+".json")
}

func (f *FileStore) lock(ctx context.Context, list string, shared bool) (*flock.Flock, error) {
	fl := flock.New(f.path(list) + ".lock")
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock snapshot %s: %w", list, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock snapshot %s: not acquired", list)
	}
	return fl, nil
}

func (f *FileStore) Load(ctx context.Context, list string) ([]models.ContentItem, error) {
	if list == "" {
		return nil, ErrInvalidList
	}
	fl, err := f.lock(ctx, list, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	data, err := os.ReadFile(f.path(list))
	if errors.Is(err, os.ErrNotExist) {
		return []models.ContentItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", list, err)
	}

	items := []models.ContentItem{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", list, err)
	}
	return items, nil
}

func (f *FileStore) Save(ctx context.Context, list string, items []models.ContentItem) error {
	if list == "" {
		return ErrInvalidList
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", list, err)
	}

	fl, err := f.lock(ctx, list, false)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	tmp, err := os.CreateTemp(f.dir, list+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", list, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot %s: %w", list, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", list, err)
	}
	if err := os.Rename(tmp.Name(), f.path(list)); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", list, err)
	}
	return nil
}
