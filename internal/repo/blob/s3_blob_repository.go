package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

// S3BlobRepositoryConfig holds configuration for the S3 blob repository.
type S3BlobRepositoryConfig struct {
	Bucket          string `env:"BUCKET" default:"gallery"`
	Region          string `env:"REGION" default:"us-east-1"`
	Endpoint        string `env:"ENDPOINT" default:""`
	AccessKeyID     string `env:"ACCESS_KEY_ID" default:""`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" default:""`
	// UsePathStyle is required by most S3 compatible servers such as MinIO
	UsePathStyle bool `env:"USE_PATH_STYLE" default:"true"`
}

// s3API is the subset of *s3.Client the repository uses.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Repository implements Repository on an S3 compatible object store.
// Objects live under "<name>/<id>" in the configured bucket.
type S3Repository struct {
	client s3API
	bucket string
	prefix string
	log    logging.Logger
	locks  *keyedMutex
}

var _ Repository = (*S3Repository)(nil)

// S3BlobRepositoryFactory creates a factory function that returns a new S3Repository.
func S3BlobRepositoryFactory(cfg S3BlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, name string) (Repository, error) {
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}

		return NewS3BlobRepository(client, cfg.Bucket, name), nil
	}
}

func newS3Client(ctx context.Context, cfg S3BlobRepositoryConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewS3BlobRepository creates a repository storing objects below name in bucket.
func NewS3BlobRepository(client s3API, bucket, name string) *S3Repository {
	return &S3Repository{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(name, "/") + "/",
		log: logging.GetLogger("repo.blob.s3").With(
			logging.Group("repo", "bucket", bucket, "prefix", name),
		),
		locks: newKeyedMutex(),
	}
}

func (s3Repo *S3Repository) key(id domain.BlobID) string {
	return path.Join(s3Repo.prefix, string(id))
}

func isS3NotFound(err error) bool {
	var (
		noSuchKey *types.NoSuchKey
		notFound  *types.NotFound
	)

	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func (s3Repo *S3Repository) Exists(ctx context.Context, id domain.BlobID) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}

	_, err := s3Repo.client.HeadObject(ctx, &s3.HeadObjectInput{ //nolint:exhaustruct
		Bucket: aws.String(s3Repo.bucket),
		Key:    aws.String(s3Repo.key(id)),
	})

	switch {
	case err == nil:
		return true, nil
	case isS3NotFound(err):
		return false, nil
	default:
		return false, errors.Join(domain.ErrStorage, err)
	}
}

func (s3Repo *S3Repository) Store(ctx context.Context, blob *domain.Blob) (err error) {
	defer func() {
		log := s3Repo.log.With(logging.Group("blob", "id", blob.ID))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	if err := checkID(blob.ID); err != nil {
		return err
	}

	defer s3Repo.locks.Lock(blob.ID, true)()

	_, err = s3Repo.client.PutObject(ctx, &s3.PutObjectInput{ //nolint:exhaustruct
		Bucket:        aws.String(s3Repo.bucket),
		Key:           aws.String(s3Repo.key(blob.ID)),
		Body:          blob.Read(),
		ContentLength: aws.Int64(blob.Size()),
	})
	if err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("put object: %w", err))
	}

	return nil
}

func (s3Repo *S3Repository) Fetch(ctx context.Context, id domain.BlobID) (_ *domain.Blob, err error) {
	defer func() {
		log := s3Repo.log.With(logging.Group("blob", "id", id))
		if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			log.ErrorContext(ctx, "blob fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob fetched", "found", err == nil)
		}
	}()

	if err := checkID(id); err != nil {
		return nil, err
	}

	defer s3Repo.locks.Lock(id, false)()

	out, err := s3Repo.client.GetObject(ctx, &s3.GetObjectInput{ //nolint:exhaustruct
		Bucket: aws.String(s3Repo.bucket),
		Key:    aws.String(s3Repo.key(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, errors.Join(domain.ErrBlobNotFound, err)
		}

		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("get object: %w", err))
	}
	defer out.Body.Close()

	blob := domain.NewBlob(id, nil)
	if _, err := blob.ReadFrom(out.Body); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("read object: %w", err))
	}

	return blob, nil
}

// Delete removes the object. S3 deletes are idempotent, so existence is checked first
// to report domain.ErrBlobNotFound like the filesystem backend.
func (s3Repo *S3Repository) Delete(ctx context.Context, id domain.BlobID) (err error) {
	defer func() {
		log := s3Repo.log.With(logging.Group("blob", "id", id))
		if err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			log.ErrorContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted", "found", err == nil)
		}
	}()

	defer s3Repo.locks.Lock(id, true)()

	exists, err := s3Repo.Exists(ctx, id)
	if err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("%w: %s", domain.ErrBlobNotFound, id)
	}

	if _, err := s3Repo.client.DeleteObject(ctx, &s3.DeleteObjectInput{ //nolint:exhaustruct
		Bucket: aws.String(s3Repo.bucket),
		Key:    aws.String(s3Repo.key(id)),
	}); err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("delete object: %w", err))
	}

	return nil
}

func (s3Repo *S3Repository) DeleteVariants(ctx context.Context, id domain.BlobID) (err error) {
	var removed int

	defer func() {
		log := s3Repo.log.With(logging.Group("blob", "id", id))
		if err != nil {
			log.ErrorContext(ctx, "blob variants delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob variants deleted", "count", removed)
		}
	}()

	if err := checkID(id); err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(s3Repo.client, &s3.ListObjectsV2Input{ //nolint:exhaustruct
		Bucket: aws.String(s3Repo.bucket),
		Prefix: aws.String(s3Repo.key(id) + "_"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return errors.Join(domain.ErrStorage, fmt.Errorf("list objects: %w", err))
		}

		for _, obj := range page.Contents {
			if _, err := s3Repo.client.DeleteObject(ctx, &s3.DeleteObjectInput{ //nolint:exhaustruct
				Bucket: aws.String(s3Repo.bucket),
				Key:    obj.Key,
			}); err != nil {
				return errors.Join(domain.ErrStorage, fmt.Errorf("delete object: %w", err))
			}

			removed++
		}
	}

	return nil
}
