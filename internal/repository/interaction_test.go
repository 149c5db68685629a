package repository

import (
	"context"
	"errors"
	"testing"

	"newsdesk/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInteractionRepository_SetIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	content := NewContentRepository(db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	item := seedItems(t, content, models.KindArticle, "story")[0]

	steps := []struct {
		name        string
		user        string
		active      bool
		wantChanged bool
		wantLikes   int
	}{
		{"first like", "u1", true, true, 1},
		{"repeat like", "u1", true, false, 1},
		{"second user", "u2", true, true, 2},
		{"unlike", "u1", false, true, 1},
		{"repeat unlike", "u1", false, false, 1},
	}
	for _, st := range steps {
		stored, changed, err := repo.Set(ctx, st.user, item.ID, models.InteractionLike, st.active)
		require.NoError(t, err, st.name)
		assert.Equal(t, st.wantChanged, changed, st.name)
		assert.Equal(t, st.wantLikes, stored.Likes, st.name)

		got, err := content.GetByID(ctx, models.KindArticle, item.ID)
		require.NoError(t, err)
		assert.Equal(t, st.wantLikes, got.Likes, st.name)
	}
}

func TestInteractionRepository_SetClampsCounter(t *testing.T) {
	db := newTestDB(t)
	content := NewContentRepository(db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	item := seedItems(t, content, models.KindBlock, "b")[0]

	_, _, err := repo.Set(ctx, "u1", item.ID, models.InteractionBookmark, true)
	require.NoError(t, err)
	// Counter drifted below the number of rows.
	require.NoError(t, db.Model(&models.ContentItem{}).Where("id = ?", item.ID).UpdateColumn("bookmarks", 0).Error)

	stored, changed, err := repo.Set(ctx, "u1", item.ID, models.InteractionBookmark, false)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, 0, stored.Bookmarks)
	assert.Equal(t, models.KindBlock, stored.Kind)
}

func TestInteractionRepository_SetErrors(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	_, _, err := repo.Set(ctx, "u1", "missing", models.InteractionLike, true)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, _, err = repo.Set(ctx, "u1", "missing", models.InteractionType("clap"), true)
	assert.ErrorContains(t, err, "unknown interaction type")
}

func TestInteractionRepository_AwardOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	awarded, err := repo.Award(ctx, "u1", "t1", models.InteractionShare, 5)
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = repo.Award(ctx, "u1", "t1", models.InteractionShare, 5)
	require.NoError(t, err)
	assert.False(t, awarded, "points are granted once")

	_, err = repo.Award(ctx, "u1", "t1", models.InteractionLike, 1)
	require.NoError(t, err)
	_, err = repo.Award(ctx, "u2", "t1", models.InteractionLike, 1)
	require.NoError(t, err)

	total, err := repo.TotalPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	none, err := repo.TotalPoints(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestInteractionRepository_ActiveTypes(t *testing.T) {
	db := newTestDB(t)
	content := NewContentRepository(db)
	repo := NewInteractionRepository(db)
	ctx := context.Background()
	items := seedItems(t, content, models.KindArticle, "a", "b", "c")

	for _, typ := range []models.InteractionType{models.InteractionLike, models.InteractionShare} {
		_, _, err := repo.Set(ctx, "u1", items[0].ID, typ, true)
		require.NoError(t, err)
	}
	_, _, err := repo.Set(ctx, "u1", items[2].ID, models.InteractionBookmark, true)
	require.NoError(t, err)
	_, _, err = repo.Set(ctx, "u2", items[1].ID, models.InteractionLike, true)
	require.NoError(t, err)

	got, err := repo.ActiveTypes(ctx, "u1", []string{items[0].ID, items[1].ID, items[2].ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[models.InteractionType]bool{
		items[0].ID: {models.InteractionLike: true, models.InteractionShare: true},
		items[2].ID: {models.InteractionBookmark: true},
	}, got)

	anon, err := repo.ActiveTypes(ctx, "", []string{items[0].ID})
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestInteractionRepository_AwardInsertError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "points_awards"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	awarded, err := repo.Award(context.Background(), "u1", "t1", models.InteractionLike, 1)
	assert.EqualError(t, err, "disk full")
	assert.False(t, awarded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRepository_SetRollsBackOnInsertFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "content_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))
	mock.ExpectQuery(`INSERT INTO "interactions"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	item, changed, err := repo.Set(context.Background(), "u1", "a1", models.InteractionLike, true)
	assert.EqualError(t, err, "connection reset")
	assert.Nil(t, item)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionRepository_TotalPointsQueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(points\), 0\) FROM "points_awards"`).
		WithArgs("u1").
		WillReturnError(errors.New("statement timeout"))

	total, err := repo.TotalPoints(context.Background(), "u1")
	assert.EqualError(t, err, "statement timeout")
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
