package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/text2toss/junk-removal-api/pkg/logging"
)

var tracer = otel.Tracer("text2toss.internal.photos")

// Key prefixes.
const (
	QuoteTempPrefix  = "quotes/tmp/"
	CompletionPrefix = "completions/"
	GalleryPrefix    = "gallery/"
)

// MaxUploadBytes caps every image upload.
const MaxUploadBytes = 10 << 20

// Object is a stored blob.
type Object struct {
	Key          string
	ContentType  string
	Data         []byte
	LastModified time.Time
}

// ObjectInfo describes an object without its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is a flat key/value blob store.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps photos in a single bucket.
type S3Store struct {
	bucket string
	client S3API
}

func NewS3Store(client S3API, bucket string) *S3Store {
	if client == nil || bucket == "" {
		panic("photos: s3 client and bucket required")
	}
	return &S3Store{bucket: bucket, client: client}
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("photos: s3 put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("photos: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("photos: s3 read %s: %w", key, err)
	}
	return &Object{
		Key:          key,
		ContentType:  aws.ToString(out.ContentType),
		Data:         data,
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("photos: s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("photos: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return out, nil
		}
		token = page.NextContinuationToken
	}
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey")
}

// MemoryStore is an ObjectStore for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.objects[key] = Object{Key: key, ContentType: contentType, Data: cp, LastModified: m.now().UTC()}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.Data)), LastModified: obj.LastModified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Service names and manages the photos the API keeps.
type Service struct {
	store  ObjectStore
	logger *logging.Logger
	now    func() time.Time
}

func NewService(store ObjectStore, logger *logging.Logger) *Service {
	if store == nil {
		panic("photos: object store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// PutQuoteImage stores an image uploaded for an AI quote. These are temporary
// and removed by CleanupTemp.
func (s *Service) PutQuoteImage(ctx context.Context, quoteID string, data []byte, contentType string) (string, error) {
	key := QuoteTempPrefix + quoteID + extension(contentType)
	return key, s.put(ctx, key, data, contentType)
}

// PutCompletionPhoto stores the proof-of-pickup photo for a booking.
func (s *Service) PutCompletionPhoto(ctx context.Context, bookingID string, data []byte, contentType string) (string, error) {
	key := CompletionPrefix + bookingID + "/" + uuid.NewString() + extension(contentType)
	return key, s.put(ctx, key, data, contentType)
}

// PutGalleryPhoto stores a marketing photo.
func (s *Service) PutGalleryPhoto(ctx context.Context, data []byte, contentType string) (string, error) {
	key := GalleryPrefix + uuid.NewString() + extension(contentType)
	return key, s.put(ctx, key, data, contentType)
}

// Open loads a stored photo.
func (s *Service) Open(ctx context.Context, key string) (*Object, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	ctx, span := tracer.Start(ctx, "photos.open")
	defer span.End()
	return s.store.Get(ctx, key)
}

// CleanupTemp deletes quote images older than maxAge and reports how many were removed.
func (s *Service) CleanupTemp(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "photos.cleanup_temp")
	defer span.End()

	objects, err := s.store.List(ctx, QuoteTempPrefix)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)
	deleted := 0
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err != nil {
			s.logger.Warn("temp image delete failed", "key", obj.Key, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info("temp images cleaned up", "deleted", deleted, "max_age", maxAge.String())
	}
	return deleted, nil
}

func (s *Service) put(ctx context.Context, key string, data []byte, contentType string) error {
	if len(data) > MaxUploadBytes {
		return ErrTooLarge
	}
	if extension(contentType) == "" {
		return ErrUnsupportedType
	}
	ctx, span := tracer.Start(ctx, "photos.put")
	defer span.End()
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return err
	}
	s.logger.Debug("photo stored", "key", key, "bytes", len(data), "dir", path.Dir(key))
	return nil
}

func extension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic", "image/heif":
		return ".heic"
	default:
		return ""
	}
}
