package reorder

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordered(ids ...string) []models.ContentItem {
	out := make([]models.ContentItem, len(ids))
	for i, id := range ids {
		out[i] = models.ContentItem{ID: id, Order: i + 1}
	}
	return out
}

type pair struct {
	ID    string
	Order int
}

func pairs(items []models.ContentItem) []pair {
	out := make([]pair, len(items))
	for i, it := range items {
		out[i] = pair{it.ID, it.Order}
	}
	return out
}

func TestMove_UpSwapsAndRenumbers(t *testing.T) {
	got, moved := Move(ordered("1", "2", "3"), "2", Up)

	assert.True(t, moved)
	assert.Equal(t, []pair{{"2", 1}, {"1", 2}, {"3", 3}}, pairs(got))
}

func TestMove_Down(t *testing.T) {
	got, moved := Move(ordered("1", "2", "3"), "1", Down)

	assert.True(t, moved)
	assert.Equal(t, []pair{{"2", 1}, {"1", 2}, {"3", 3}}, pairs(got))
}

func TestMove_BoundaryNoOp(t *testing.T) {
	tests := []struct {
		name string
		id   string
		dir  Direction
	}{
		{"first up", "1", Up},
		{"last down", "3", Down},
		{"unknown id", "9", Up},
		{"bad direction", "2", Direction("sideways")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ordered("1", "2", "3")
			got, moved := Move(in, tt.id, tt.dir)
			assert.False(t, moved)
			assert.Equal(t, in, got)
		})
	}
}

func TestMove_RepairsCorruptOrder(t *testing.T) {
	in := []models.ContentItem{{ID: "a", Order: 4}, {ID: "b", Order: 4}, {ID: "c", Order: 10}}
	got, moved := Move(in, "c", Up)

	require.True(t, moved)
	assert.Equal(t, []pair{{"a", 1}, {"c", 2}, {"b", 3}}, pairs(got))
	// input untouched
	assert.Equal(t, 10, in[2].Order)
}

func TestMove_ContiguityUnderRandomMoves(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 1; n <= 12; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		items := ordered(ids...)
		for step := 0; step < 50; step++ {
			dir := Up
			if r.Intn(2) == 0 {
				dir = Down
			}
			items, _ = Move(items, ids[r.Intn(n)], dir)
			require.True(t, Contiguous(items), "n=%d step=%d", n, step)
			require.Len(t, items, n)
		}
	}
}

func TestMoveTo(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		position int
		want     []string
		moved    bool
	}{
		{"to front", "4", 1, []string{"4", "1", "2", "3"}, true},
		{"to back", "1", 4, []string{"2", "3", "4", "1"}, true},
		{"middle forward", "2", 3, []string{"1", "3", "2", "4"}, true},
		{"clamped high", "2", 99, []string{"1", "3", "4", "2"}, true},
		{"clamped low", "3", -5, []string{"3", "1", "2", "4"}, true},
		{"same place", "2", 2, []string{"1", "2", "3", "4"}, false},
		{"unknown", "x", 1, []string{"1", "2", "3", "4"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, moved := MoveTo(ordered("1", "2", "3", "4"), tt.id, tt.position)
			assert.Equal(t, tt.moved, moved)
			gotIDs := make([]string, len(got))
			for i, it := range got {
				gotIDs[i] = it.ID
			}
			assert.Equal(t, tt.want, gotIDs)
			assert.True(t, Contiguous(got))
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" UP ")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	_, err = ParseDirection("left")
	assert.Error(t, err)
}

func TestSequencer_SerializesPerList(t *testing.T) {
	s := NewSequencer()
	var inFlight, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Submit(context.Background(), "blocks", func(_ context.Context, v int64) (int64, error) {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return v + 1, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, int64(8), s.Version("blocks"))
}

func TestSequencer_FailureKeepsVersion(t *testing.T) {
	s := NewSequencer()
	s.SetVersion("articles", 3)

	err := s.Submit(context.Background(), "articles", func(_ context.Context, v int64) (int64, error) {
		assert.Equal(t, int64(3), v)
		return 0, errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, int64(3), s.Version("articles"))
}

func TestSequencer_HonoursContextWhileWaiting(t *testing.T) {
	s := NewSequencer()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = s.Submit(context.Background(), "blocks", func(_ context.Context, v int64) (int64, error) {
			close(started)
			<-release
			return v, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Submit(ctx, "blocks", func(_ context.Context, v int64) (int64, error) { return v, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestSequencer_SetVersionMonotonic(t *testing.T) {
	s := NewSequencer()
	s.SetVersion("blocks", 5)
	s.SetVersion("blocks", 2)
	assert.Equal(t, int64(5), s.Version("blocks"))

	s.ResetVersion("blocks", 2)
	assert.Equal(t, int64(2), s.Version("blocks"))
}

func TestArrange(t *testing.T) {
	items := []models.ContentItem{{ID: "a"}, {ID: "new"}, {ID: "b"}, {ID: "c"}}
	got := Arrange(items, []string{"c", "a", "b", "gone"})
	require.Len(t, got, 4)
	assert.Equal(t, []string{"c", "a", "b", "new"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	assert.True(t, Contiguous(got))
	assert.Equal(t, "a", items[0].ID, "input must not be reordered")
}

func TestArrange_DuplicateIDsUseFirstPosition(t *testing.T) {
	got := Arrange(ordered("a", "b", "c"), []string{"b", "a", "b"})
	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
