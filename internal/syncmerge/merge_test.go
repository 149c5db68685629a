package syncmerge

import (
	"context"
	"errors"
	"testing"

	"newsdesk/internal/models"
	"newsdesk/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, views int) models.ContentItem {
	return models.ContentItem{ID: id, Views: views}
}

func TestMerge_RemotePrecedence(t *testing.T) {
	remote := []models.ContentItem{item("a", 1)}
	local := []models.ContentItem{item("a", 2), item("b", 3)}

	assert.Equal(t, []models.ContentItem{item("a", 1), item("b", 3)}, Merge(remote, local))
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		remote []models.ContentItem
		local  []models.ContentItem
		want   []string
	}{
		{"both empty", nil, nil, []string{}},
		{"remote only", []models.ContentItem{item("x", 0), item("y", 0)}, nil, []string{"x", "y"}},
		{"local only", nil, []models.ContentItem{item("x", 0)}, []string{"x"}},
		{"keeps remote order then local order", []models.ContentItem{item("c", 0), item("a", 0)}, []models.ContentItem{item("z", 0), item("a", 0), item("m", 0)}, []string{"c", "a", "z", "m"}},
		{"duplicate local ids collapse", nil, []models.ContentItem{item("d", 1), item("d", 2)}, []string{"d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.remote, tt.local)
			ids := make([]string, len(got))
			for i, it := range got {
				ids[i] = it.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	remote := []models.ContentItem{item("a", 1)}
	local := []models.ContentItem{item("b", 2)}

	out := Merge(remote, local)
	out[0].Views = 99

	assert.Equal(t, 1, remote[0].Views)
}

func TestLocalOnly(t *testing.T) {
	got := LocalOnly([]models.ContentItem{item("a", 0)}, []models.ContentItem{item("a", 0), item("b", 0)})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

type brokenStore struct {
	snapshot.Store
	loadErr, saveErr error
}

func (b brokenStore) Load(ctx context.Context, list string) ([]models.ContentItem, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.Store.Load(ctx, list)
}

func (b brokenStore) Save(ctx context.Context, list string, items []models.ContentItem) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.Store.Save(ctx, list, items)
}

func TestSyncer_MergesAndSavesWholeSnapshot(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "bulletins", []models.ContentItem{item("a", 2), item("offline", 3)}))

	s := &Syncer{
		List:  "bulletins",
		Store: store,
		Fetch: func(context.Context) ([]models.ContentItem, error) {
			return []models.ContentItem{item("a", 1), item("server", 0)}, nil
		},
	}

	got, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ContentItem{item("a", 1), item("server", 0), item("offline", 3)}, got)

	saved, err := store.Load(ctx, "bulletins")
	require.NoError(t, err)
	assert.Equal(t, got, saved)
}

func TestSyncer_FetchFailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "blocks", []models.ContentItem{item("l", 0)}))
	fetchErr := errors.New("offline")

	s := &Syncer{List: "blocks", Store: store, Fetch: func(context.Context) ([]models.ContentItem, error) {
		return nil, fetchErr
	}}

	got, err := s.Sync(ctx)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, []models.ContentItem{item("l", 0)}, got)
}

func TestSyncer_BrokenSnapshotFallsBackToRemote(t *testing.T) {
	s := &Syncer{
		List:  "blocks",
		Store: brokenStore{Store: snapshot.NewMemoryStore(), loadErr: errors.New("corrupt")},
		Fetch: func(context.Context) ([]models.ContentItem, error) {
			return []models.ContentItem{item("r", 0)}, nil
		},
	}

	got, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ContentItem{item("r", 0)}, got)
}

func TestSyncer_SaveFailureReturnsMerged(t *testing.T) {
	saveErr := errors.New("disk full")
	s := &Syncer{
		List:  "blocks",
		Store: brokenStore{Store: snapshot.NewMemoryStore(), saveErr: saveErr},
		Fetch: func(context.Context) ([]models.ContentItem, error) {
			return []models.ContentItem{item("r", 0)}, nil
		},
	}

	got, err := s.Sync(context.Background())
	assert.ErrorIs(t, err, saveErr)
	assert.Len(t, got, 1)
}
