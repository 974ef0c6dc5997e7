package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/domain"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	bodyErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}

	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[*in.Key] = body

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	if f.bodyErr != nil {
		return &s3.GetObjectOutput{Body: io.NopCloser(iotest.ErrReader(f.bodyErr))}, nil
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, *in.Key)

	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string

	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}

	return out, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func TestS3Repository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newFakeS3()
	repo := NewS3BlobRepository(client, "bucket", "images")

	require.NoError(t, repo.Store(ctx, domain.NewBlob("img1", []byte("full"))))
	require.NoError(t, repo.Store(ctx, domain.NewBlob("img1_w100", []byte("small"))))
	require.NoError(t, repo.Store(ctx, domain.NewBlob("img10", []byte("other"))))

	assert.Equal(t, []string{"images/img1", "images/img10", "images/img1_w100"}, client.keys())

	blob, err := repo.Fetch(ctx, "img1")
	require.NoError(t, err)
	assert.Equal(t, []byte("full"), blob.Body)

	ok, err := repo.Exists(ctx, "img1_w100")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.DeleteVariants(ctx, "img1"))
	assert.Equal(t, []string{"images/img1", "images/img10"}, client.keys())

	require.NoError(t, repo.Delete(ctx, "img1"))
	assert.ErrorIs(t, repo.Delete(ctx, "img1"), domain.ErrBlobNotFound)

	_, err = repo.Fetch(ctx, "img1")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestS3RepositoryStorageFailure(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	client.putErr = errors.New("connection reset")

	repo := NewS3BlobRepository(client, "bucket", "images")

	err := repo.Store(context.Background(), domain.NewBlob("img1", []byte("x")))
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestS3RepositoryTruncatedBody(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newFakeS3()
	repo := NewS3BlobRepository(client, "bucket", "images")

	require.NoError(t, repo.Store(ctx, domain.NewBlob("img1", []byte("payload"))))

	client.bodyErr = errors.New("unexpected EOF")

	_, err := repo.Fetch(ctx, "img1")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrBlobNotFound)
}
