package photos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReelSlots is the number of positions in the landing page reel.
const ReelSlots = 6

// GalleryPhoto is a marketing photo, optionally pinned to a reel slot.
type GalleryPhoto struct {
	ID          string    `json:"id"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	Caption     string    `json:"caption,omitempty"`
	ReelSlot    *int      `json:"reel_slot"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// GalleryRepository persists gallery metadata.
type GalleryRepository interface {
	Create(ctx context.Context, p *GalleryPhoto) error
	Get(ctx context.Context, id string) (*GalleryPhoto, error)
	List(ctx context.Context) ([]*GalleryPhoto, error)
	// SetReelSlot pins a photo to slot, unpinning whichever photo held it.
	// A nil slot unpins the photo.
	SetReelSlot(ctx context.Context, id string, slot *int) (*GalleryPhoto, error)
}

// ValidReelSlot reports whether slot is nil or within range.
func ValidReelSlot(slot *int) bool {
	return slot == nil || (*slot >= 0 && *slot < ReelSlots)
}

// Reel returns pinned photos ordered by slot.
func Reel(all []*GalleryPhoto) []*GalleryPhoto {
	var out []*GalleryPhoto
	for _, p := range all {
		if p.ReelSlot != nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].ReelSlot < *out[j].ReelSlot })
	return out
}

// InMemoryGallery keeps gallery metadata in memory.
type InMemoryGallery struct {
	mu     sync.RWMutex
	photos map[string]*GalleryPhoto
}

func NewInMemoryGallery() *InMemoryGallery {
	return &InMemoryGallery{photos: make(map[string]*GalleryPhoto)}
}

func (g *InMemoryGallery) Create(_ context.Context, p *GalleryPhoto) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	g.photos[p.ID] = &cp
	return nil
}

func (g *InMemoryGallery) Get(_ context.Context, id string) (*GalleryPhoto, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.photos[id]
	if !ok {
		return nil, ErrPhotoNotFound
	}
	cp := *p
	return &cp, nil
}

func (g *InMemoryGallery) List(_ context.Context) ([]*GalleryPhoto, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*GalleryPhoto, 0, len(g.photos))
	for _, p := range g.photos {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (g *InMemoryGallery) SetReelSlot(_ context.Context, id string, slot *int) (*GalleryPhoto, error) {
	if !ValidReelSlot(slot) {
		return nil, ErrInvalidReelSlot
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.photos[id]
	if !ok {
		return nil, ErrPhotoNotFound
	}
	if slot != nil {
		for _, other := range g.photos {
			if other.ID != id && other.ReelSlot != nil && *other.ReelSlot == *slot {
				other.ReelSlot = nil
			}
		}
		v := *slot
		p.ReelSlot = &v
	} else {
		p.ReelSlot = nil
	}
	cp := *p
	return &cp, nil
}

type txBeginner interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresGallery stores gallery metadata in gallery_photos.
type PostgresGallery struct {
	pool txBeginner
}

func NewPostgresGallery(pool *pgxpool.Pool) *PostgresGallery {
	if pool == nil {
		panic("photos: pgx pool required")
	}
	return &PostgresGallery{pool: pool}
}

func newPostgresGalleryWithExec(exec txBeginner) *PostgresGallery {
	return &PostgresGallery{pool: exec}
}

const galleryColumns = `id, object_key, content_type, caption, reel_slot, created_at`

func (g *PostgresGallery) Create(ctx context.Context, p *GalleryPhoto) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := g.pool.QueryRow(ctx, `
		INSERT INTO gallery_photos (id, object_key, content_type, caption)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.ObjectKey, p.ContentType, p.Caption).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("photos: insert gallery photo: %w", err)
	}
	return nil
}

func (g *PostgresGallery) Get(ctx context.Context, id string) (*GalleryPhoto, error) {
	row := g.pool.QueryRow(ctx, `SELECT `+galleryColumns+` FROM gallery_photos WHERE id = $1`, id)
	p, err := scanGalleryPhoto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("photos: get gallery photo: %w", err)
	}
	return p, nil
}

func (g *PostgresGallery) List(ctx context.Context) ([]*GalleryPhoto, error) {
	rows, err := g.pool.Query(ctx, `SELECT `+galleryColumns+` FROM gallery_photos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("photos: list gallery: %w", err)
	}
	defer rows.Close()
	var out []*GalleryPhoto
	for rows.Next() {
		p, err := scanGalleryPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("photos: scan gallery photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (g *PostgresGallery) SetReelSlot(ctx context.Context, id string, slot *int) (*GalleryPhoto, error) {
	if !ValidReelSlot(slot) {
		return nil, ErrInvalidReelSlot
	}
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("photos: begin reel update: %w", err)
	}
	defer tx.Rollback(ctx)

	if slot != nil {
		if _, err := tx.Exec(ctx, `UPDATE gallery_photos SET reel_slot = NULL WHERE reel_slot = $1 AND id <> $2`, *slot, id); err != nil {
			return nil, fmt.Errorf("photos: clear reel slot: %w", err)
		}
	}
	row := tx.QueryRow(ctx, `UPDATE gallery_photos SET reel_slot = $2 WHERE id = $1 RETURNING `+galleryColumns, id, slot)
	p, err := scanGalleryPhoto(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("photos: set reel slot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("photos: commit reel update: %w", err)
	}
	return p, nil
}

func scanGalleryPhoto(row pgx.Row) (*GalleryPhoto, error) {
	var p GalleryPhoto
	var slot *int32
	if err := row.Scan(&p.ID, &p.ObjectKey, &p.ContentType, &p.Caption, &slot, &p.CreatedAt); err != nil {
		return nil, err
	}
	if slot != nil {
		v := int(*slot)
		p.ReelSlot = &v
	}
	return &p, nil
}
