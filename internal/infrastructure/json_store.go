package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"
)

// JSONStore keeps each named collection in its own JSON file under dir.
type JSONStore struct {
	dir     string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// creates the data directory if needed
func NewJSONStore(dir string, logger *logger.Logger, metrics *metrics.Metrics) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &JSONStore{dir: dir, logger: logger, metrics: metrics}, nil
}

// Collection is one JSON file. Every operation re-reads the file under the
// collection mutex, so there is no cached state to go stale.
type Collection[T any] struct {
	store      *JSONStore
	name       string
	newDefault func() T
	mutex      sync.Mutex
}

// NewCollection binds a collection name to its empty default.
func NewCollection[T any](store *JSONStore, name string, newDefault func() T) *Collection[T] {
	return &Collection[T]{store: store, name: name, newDefault: newDefault}
}

func (c *Collection[T]) path() string {
	return filepath.Join(c.store.dir, c.name+".json")
}

// Load returns the collection. A missing file is initialized with the
// default; an undecodable one is moved aside and the default returned. Any
// other read failure is returned as ErrPersistence.
func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.load(ctx)
}

// Save replaces the collection atomically.
func (c *Collection[T]) Save(ctx context.Context, value T) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.save(ctx, value)
}

// Update loads, applies fn and saves under one critical section. Nothing is
// written when fn fails.
func (c *Collection[T]) Update(ctx context.Context, fn func(T) (T, error)) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	current, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return c.save(ctx, next)
}

func (c *Collection[T]) load(ctx context.Context) (T, error) {
	log := c.store.logger.WithContext(ctx).WithField("collection", c.name)

	data, err := os.ReadFile(c.path())
	if errors.Is(err, fs.ErrNotExist) {
		value := c.newDefault()
		c.store.metrics.RecordCollectionFallback(c.name, "missing")
		if err := c.save(ctx, value); err != nil {
			log.WithError(err).Error("Failed to persist default collection")
		} else {
			log.Info("Initialized missing collection with default")
		}
		return value, nil
	}
	if err != nil {
		// The file exists but cannot be read; a default here would be saved
		// over the real records by the next Update.
		var zero T
		c.store.metrics.RecordPersistenceFailure(c.name)
		log.WithError(err).Error("Failed to read collection")
		return zero, fmt.Errorf("%w: failed to read %s: %v", domain.ErrPersistence, c.name, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.store.metrics.RecordCollectionFallback(c.name, "corrupt")
		backup := c.quarantine()
		log.WithError(fmt.Errorf("%w: %v", domain.ErrCorruptData, err)).
			WithField("backup", backup).
			Warn("Collection corrupt, using default")
		return c.newDefault(), nil
	}
	return value, nil
}

// quarantine moves a corrupt file aside so the next save does not destroy it.
func (c *Collection[T]) quarantine() string {
	backup := fmt.Sprintf("%s.corrupt-%s", c.path(), time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(c.path(), backup); err != nil {
		return ""
	}
	return backup
}

func (c *Collection[T]) save(ctx context.Context, value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		c.store.metrics.RecordPersistenceFailure(c.name)
		return fmt.Errorf("%w: failed to encode %s: %v", domain.ErrPersistence, c.name, err)
	}

	if err := writeFileAtomic(c.path(), data); err != nil {
		c.store.metrics.RecordPersistenceFailure(c.name)
		c.store.logger.WithContext(ctx).WithError(err).WithField("collection", c.name).Error("Failed to save collection")
		return fmt.Errorf("%w: failed to save %s: %v", domain.ErrPersistence, c.name, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory, then renames
// it over path. On failure the previous file is untouched and the temp file
// is removed.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit file: %w", err)
	}
	return nil
}
