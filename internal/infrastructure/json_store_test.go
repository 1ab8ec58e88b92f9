package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"campaignledger/internal/domain"
	"campaignledger/pkg/logger"
	"campaignledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*JSONStore, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	store, err := NewJSONStore(t.TempDir(), logger.NewDiscard(), m)
	require.NoError(t, err)
	return store, m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}

func emptyList() []string { return []string{} }

func TestCollectionMissingFileInitializesDefault(t *testing.T) {
	store, m := newTestStore(t)
	c := NewCollection(store, "names", emptyList)

	value, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, value)

	data, err := os.ReadFile(filepath.Join(store.dir, "names.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
	assert.Equal(t, 1.0, counterValue(t, m.CollectionFallbacks.WithLabelValues("names", "missing")))
}

func TestCollectionCorruptFileFallsBackAndKeepsBackup(t *testing.T) {
	store, m := newTestStore(t)
	path := filepath.Join(store.dir, "names.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	c := NewCollection(store, "names", emptyList)
	value, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.Equal(t, 1.0, counterValue(t, m.CollectionFallbacks.WithLabelValues("names", "corrupt")))

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	backup, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(backup))
}

func TestCollectionSaveAndReload(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	c := NewCollection(store, "names", emptyList)

	require.NoError(t, c.Save(ctx, []string{"a", "b"}))

	reopened := NewCollection(store, "names", emptyList)
	value, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, value)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestCollectionUpdateSkipsWriteOnError(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	c := NewCollection(store, "names", emptyList)
	require.NoError(t, c.Save(ctx, []string{"kept"}))

	boom := errors.New("boom")
	err := c.Update(ctx, func(v []string) ([]string, error) {
		return append(v, "lost"), boom
	})
	assert.ErrorIs(t, err, boom)

	value, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, value)
}

func TestCollectionConcurrentUpdates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	c := NewCollection(store, "names", emptyList)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Update(ctx, func(v []string) ([]string, error) {
				return append(v, "x"), nil
			}))
		}()
	}
	wg.Wait()

	value, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, value, 20)
}

func TestWriteFileAtomicLeavesOldFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-dir", "file.json")

	err := writeFileAtomic(path, []byte(`[]`))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCollectionUnreadableFileFailsWithoutWriting(t *testing.T) {
	store, m := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, os.Mkdir(filepath.Join(store.dir, "names.json"), 0o755))

	c := NewCollection(store, "names", emptyList)
	_, err := c.Load(ctx)
	require.ErrorIs(t, err, domain.ErrPersistence)

	called := false
	err = c.Update(ctx, func(v []string) ([]string, error) {
		called = true
		return append(v, "d"), nil
	})
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, called)
	assert.Equal(t, 2.0, counterValue(t, m.PersistenceFailures.WithLabelValues("names")))

	info, err := os.Stat(filepath.Join(store.dir, "names.json"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCollectionUpdateKeepsRecordsWhenReadIsDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	store, _ := newTestStore(t)
	ctx := context.Background()
	c := NewCollection(store, "names", emptyList)
	require.NoError(t, c.Save(ctx, []string{"a", "b", "c"}))

	path := filepath.Join(store.dir, "names.json")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	err := c.Update(ctx, func(v []string) ([]string, error) { return append(v, "d"), nil })
	require.ErrorIs(t, err, domain.ErrPersistence)

	require.NoError(t, os.Chmod(path, 0o644))
	value, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, value)
}
