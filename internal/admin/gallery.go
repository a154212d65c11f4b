package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/text2toss/junk-removal-api/internal/audit"
	"github.com/text2toss/junk-removal-api/internal/photos"
)

// UploadGalleryPhoto stores a marketing photo and its metadata.
func (s *Service) UploadGalleryPhoto(ctx context.Context, data []byte, contentType, caption string) (*photos.GalleryPhoto, error) {
	if s.photos == nil || s.gallery == nil {
		return nil, ErrPhotosUnavailable
	}
	key, err := s.photos.PutGalleryPhoto(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("admin: store gallery photo: %w", err)
	}
	p := &photos.GalleryPhoto{
		ObjectKey:   key,
		ContentType: contentType,
		Caption:     strings.TrimSpace(caption),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.gallery.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("gallery photo uploaded", "photo_id", p.ID)
	s.record(ctx, audit.ActionGalleryUploaded, "gallery_photo", p.ID, nil)
	return s.withURL(p), nil
}

// Gallery lists every gallery photo, newest first.
func (s *Service) Gallery(ctx context.Context) ([]*photos.GalleryPhoto, error) {
	if s.gallery == nil {
		return []*photos.GalleryPhoto{}, nil
	}
	list, err := s.gallery.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*photos.GalleryPhoto, 0, len(list))
	for _, p := range list {
		out = append(out, s.withURL(p))
	}
	return out, nil
}

// Reel lists the photos pinned to the landing page reel in slot order.
func (s *Service) Reel(ctx context.Context) ([]*photos.GalleryPhoto, error) {
	all, err := s.Gallery(ctx)
	if err != nil {
		return nil, err
	}
	reel := photos.Reel(all)
	if reel == nil {
		reel = []*photos.GalleryPhoto{}
	}
	return reel, nil
}

// SetReelSlot pins a photo to a reel slot, or unpins it when slot is nil.
func (s *Service) SetReelSlot(ctx context.Context, id string, slot *int) (*photos.GalleryPhoto, error) {
	if s.gallery == nil {
		return nil, ErrPhotosUnavailable
	}
	if !photos.ValidReelSlot(slot) {
		return nil, photos.ErrInvalidReelSlot
	}
	p, err := s.gallery.SetReelSlot(ctx, id, slot)
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionReelSlotChanged, "gallery_photo", p.ID, map[string]*int{"slot_index": slot})
	return s.withURL(p), nil
}

// GalleryImage loads a gallery photo's bytes.
func (s *Service) GalleryImage(ctx context.Context, id string) (*photos.Object, error) {
	if s.gallery == nil {
		return nil, ErrPhotosUnavailable
	}
	p, err := s.gallery.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, p.ObjectKey)
}

func (s *Service) withURL(p *photos.GalleryPhoto) *photos.GalleryPhoto {
	cp := *p
	cp.URL = s.cfg.APIPublicURL + "/api/gallery/photos/" + p.ID
	return &cp
}
