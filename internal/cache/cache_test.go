package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()
	calls := 0
	load := func(dest *[]row) func() error {
		return func() error {
			calls++
			*dest = []row{{ID: "a", Order: 1}, {ID: "b", Order: 2}}
			return nil
		}
	}

	var first []row
	require.NoError(t, Aside(ctx, ContentListKey("article"), &first, time.Minute, load(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("content:list:article"))

	var second []row
	require.NoError(t, Aside(ctx, ContentListKey("article"), &second, time.Minute, load(&second)))
	assert.Equal(t, 1, calls, "second read should be served from cache")
	assert.Equal(t, first, second)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("content:list:article"))
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	mr := useMiniredis(t)
	var out []row
	err := Aside(context.Background(), "k", &out, time.Minute, func() error { return errors.New("db down") })
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("k"))
}

func TestAside_CorruptEntryReloads(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var out []row
	calls := 0
	err := Aside(context.Background(), "k", &out, time.Minute, func() error {
		calls++
		out = []row{{ID: "x", Order: 1}}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	got, _ := mr.Get("k")
	assert.JSONEq(t, `[{"id":"x","order":1}]`, got)
}

func TestAside_RedisDownFallsBack(t *testing.T) {
	mr := useMiniredis(t)
	mr.Close()

	var out []row
	calls := 0
	err := Aside(context.Background(), "k", &out, time.Minute, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	called := false
	require.NoError(t, Aside(context.Background(), "k", &[]row{}, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestInvalidateContent(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set(ContentListKey("block"), "[]"))
	require.NoError(t, mr.Set(ContentItemKey("b1"), "{}"))
	require.NoError(t, mr.Set(ContentItemKey("b2"), "{}"))

	InvalidateContent(context.Background(), "block", "b1")

	assert.False(t, mr.Exists(ContentListKey("block")))
	assert.False(t, mr.Exists(ContentItemKey("b1")))
	assert.True(t, mr.Exists(ContentItemKey("b2")))
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	defer SetClient(nil)

	InitRedis(mr.Addr())
	require.NotNil(t, GetClient())
	assert.NoError(t, GetClient().Ping(context.Background()).Err())

	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())

	InitRedis("")
	assert.Nil(t, GetClient())
}

func TestNewClient_ParsesURL(t *testing.T) {
	c, err := NewClient("redis://:secret@localhost:6390/3")
	require.NoError(t, err)
	defer c.Close()
	opts := c.Options()
	assert.Equal(t, "localhost:6390", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, "secret", opts.Password)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
