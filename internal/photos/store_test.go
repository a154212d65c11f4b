package photos

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client keeps objects in a map and records calls.
type mockS3Client struct {
	objects  map[string][]byte
	types    map[string]string
	modified map[string]time.Time
	deleted  []string
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: map[string][]byte{}, types: map[string]string{}, modified: map[string]time.Time{}}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	key := aws.ToString(input.Key)
	m.objects[key] = body
	m.types[key] = aws.ToString(input.ContentType)
	m.modified[key] = time.Now()
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(input.Key)
	data, ok := m.objects[key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: aws.String(m.types[key]),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(input.Key)
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, aws.ToString(input.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(m.objects[key]))),
			LastModified: aws.Time(m.modified[key]),
		})
	}
	return out, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	mock := newMockS3()
	store := NewS3Store(mock, "photos-bucket")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "gallery/a.jpg", []byte("jpeg"), "image/jpeg"))
	obj, err := store.Get(ctx, "gallery/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, []byte("jpeg"), obj.Data)

	_, err = store.Get(ctx, "gallery/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err := store.List(ctx, "gallery/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(4), infos[0].Size)

	require.NoError(t, store.Delete(ctx, "gallery/a.jpg"))
	assert.Equal(t, []string{"gallery/a.jpg"}, mock.deleted)
}

func TestService_KeysAndValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()

	key, err := svc.PutQuoteImage(ctx, "q-1", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "quotes/tmp/q-1.png", key)

	key, err = svc.PutCompletionPhoto(ctx, "b-1", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "completions/b-1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	_, err = svc.PutGalleryPhoto(ctx, []byte("gif"), "image/gif")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.PutGalleryPhoto(ctx, make([]byte, MaxUploadBytes+1), "image/jpeg")
	assert.ErrorIs(t, err, ErrTooLarge)

	obj, err := svc.Open(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	_, err = svc.Open(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CleanupTemp(t *testing.T) {
	mem := NewMemoryStore()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := NewService(mem, nil)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	mem.now = func() time.Time { return base.Add(-100 * time.Hour) }
	_, err := svc.PutQuoteImage(ctx, "old", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	_, err = svc.PutCompletionPhoto(ctx, "b-old", []byte("x"), "image/jpeg")
	require.NoError(t, err)

	mem.now = func() time.Time { return base.Add(-time.Hour) }
	_, err = svc.PutQuoteImage(ctx, "fresh", []byte("x"), "image/jpeg")
	require.NoError(t, err)

	deleted, err := svc.CleanupTemp(ctx, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := mem.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 2, "completion photos are never cleaned up")
	assert.True(t, strings.HasPrefix(remaining[0].Key, CompletionPrefix))
	assert.Equal(t, "quotes/tmp/fresh.jpg", remaining[1].Key)
}

func TestJanitor_StopsOnCancel(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	j := NewJanitor(svc, time.Hour, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
