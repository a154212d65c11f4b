package photos

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestInMemoryGallery_ReelSlots(t *testing.T) {
	g := NewInMemoryGallery()
	ctx := context.Background()

	a := &GalleryPhoto{ObjectKey: "gallery/a.jpg", ContentType: "image/jpeg"}
	b := &GalleryPhoto{ObjectKey: "gallery/b.jpg", ContentType: "image/jpeg"}
	require.NoError(t, g.Create(ctx, a))
	require.NoError(t, g.Create(ctx, b))

	_, err := g.SetReelSlot(ctx, a.ID, intPtr(2))
	require.NoError(t, err)
	// b takes slot 2 and a is unpinned
	_, err = g.SetReelSlot(ctx, b.ID, intPtr(2))
	require.NoError(t, err)

	all, err := g.List(ctx)
	require.NoError(t, err)
	reel := Reel(all)
	require.Len(t, reel, 1)
	assert.Equal(t, b.ID, reel[0].ID)

	_, err = g.SetReelSlot(ctx, a.ID, intPtr(6))
	assert.ErrorIs(t, err, ErrInvalidReelSlot)
	_, err = g.SetReelSlot(ctx, a.ID, intPtr(-1))
	assert.ErrorIs(t, err, ErrInvalidReelSlot)
	_, err = g.SetReelSlot(ctx, "missing", intPtr(0))
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	got, err := g.SetReelSlot(ctx, b.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.ReelSlot)
}

func TestReel_OrdersBySlot(t *testing.T) {
	photos := []*GalleryPhoto{
		{ID: "c", ReelSlot: intPtr(5)},
		{ID: "x"},
		{ID: "a", ReelSlot: intPtr(0)},
		{ID: "b", ReelSlot: intPtr(3)},
	}
	reel := Reel(photos)
	require.Len(t, reel, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{reel[0].ID, reel[1].ID, reel[2].ID})
}

func TestPostgresGallery_SetReelSlot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	g := newPostgresGalleryWithExec(mock)
	now := time.Now().UTC()
	slot := 1

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE gallery_photos SET reel_slot = NULL").WithArgs(1, "p-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("UPDATE gallery_photos SET reel_slot").WithArgs("p-1", &slot).
		WillReturnRows(pgxmock.NewRows([]string{"id", "object_key", "content_type", "caption", "reel_slot", "created_at"}).
			AddRow("p-1", "gallery/p.jpg", "image/jpeg", "", func() *int32 { v := int32(1); return &v }(), now))
	mock.ExpectCommit()
	mock.ExpectRollback()

	p, err := g.SetReelSlot(context.Background(), "p-1", &slot)
	require.NoError(t, err)
	require.NotNil(t, p.ReelSlot)
	assert.Equal(t, 1, *p.ReelSlot)
}

func TestPostgresGallery_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	g := newPostgresGalleryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO gallery_photos").
		WithArgs(pgxmock.AnyArg(), "gallery/p.jpg", "image/jpeg", "Before and after").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	p := &GalleryPhoto{ObjectKey: "gallery/p.jpg", ContentType: "image/jpeg", Caption: "Before and after"}
	require.NoError(t, g.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
