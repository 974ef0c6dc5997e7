package mediasvc

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/image/draw"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/blob"
)

// BlobMediaService implements MediaService on two blob namespaces:
// "data" holds the uploaded originals and "cache" holds resized variants keyed by
// the original's id and the requested width.
type BlobMediaService struct {
	dataRepo    blob.Repository
	cacheRepo   blob.Repository
	interpol    draw.Interpolator
	cacheMisses prometheus.Counter
	cfg         MediaConfig
	log         logging.Logger
}

var _ MediaService = (*BlobMediaService)(nil)

// NewBlobMediaService creates a new BlobMediaService. cacheMisses may be nil.
// Returns an error if a repository cannot be initialized or the interpolator is unknown.
func NewBlobMediaService(
	ctx context.Context,
	repoFactory blob.RepositoryFactory,
	cfg MediaConfig,
	cacheMisses prometheus.Counter,
) (*BlobMediaService, error) {
	interpol, err := getInterpolatorByName(cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("get interpolator: %w", err)
	}

	dataRepo, err := repoFactory(ctx, "data")
	if err != nil {
		return nil, fmt.Errorf("new data repository: %w", err)
	}

	cacheRepo, err := repoFactory(ctx, "cache")
	if err != nil {
		return nil, fmt.Errorf("new cache repository: %w", err)
	}

	return &BlobMediaService{
		dataRepo:    dataRepo,
		cacheRepo:   cacheRepo,
		interpol:    interpol,
		cacheMisses: cacheMisses,
		cfg:         cfg,
		log:         logging.GetLogger("svc.mediasvc.blob_media_service"),
	}, nil
}

// MaxSize implements MediaService.MaxSize.
func (mediaSvc *BlobMediaService) MaxSize() int64 {
	return mediaSvc.cfg.MaxSize
}

// CheckUploadConstraints implements MediaService.CheckUploadConstraints.
func (mediaSvc *BlobMediaService) CheckUploadConstraints(filename string, size int64, data []byte) (string, error) {
	if size > mediaSvc.cfg.MaxSize {
		return "", fmt.Errorf("%w: %d exceeds %d", domain.ErrImageTooLarge, size, mediaSvc.cfg.MaxSize)
	}

	mimeType, err := TypeFromFilename(filename)
	if err != nil {
		return "", err
	}

	if data != nil && !matchesType(data, mimeType) {
		return "", fmt.Errorf("%w: %q", domain.ErrImageTypeMismatch, filename)
	}

	return mimeType, nil
}

// Store implements MediaService.Store.
func (mediaSvc *BlobMediaService) Store(
	ctx context.Context,
	id domain.BlobID,
	filename string,
	data []byte,
) (ref domain.BlobRef, err error) {
	log := mediaSvc.log.With(logging.Group("media",
		"id", id,
		"filename", filename,
		"size", len(data),
	))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "media store failed", "error", err)
		} else {
			log.DebugContext(ctx, "media stored", "type", ref.MIMEType)
		}
	}()

	if len(data) == 0 {
		return domain.BlobRef{}, domain.ErrNoBlob
	}

	mimeType, err := mediaSvc.CheckUploadConstraints(filename, int64(len(data)), data)
	if err != nil {
		return domain.BlobRef{}, fmt.Errorf("check upload constraints: %w", err)
	}

	if err := mediaSvc.dataRepo.Store(ctx, domain.NewBlob(id, data)); err != nil {
		return domain.BlobRef{}, fmt.Errorf("store data: %w", err)
	}

	return domain.BlobRef{
		Path:     id,
		MIMEType: mimeType,
		Size:     int64(len(data)),
	}, nil
}

// Fetch implements MediaService.Fetch.
func (mediaSvc *BlobMediaService) Fetch(
	ctx context.Context,
	ref domain.BlobRef,
	width int,
) (content domain.Content, err error) {
	log := mediaSvc.log.With(logging.Group("media", "id", ref.Path, "width", width))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "media fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "media fetched", "size", content.Size())
		}
	}()

	if width < 0 || width > mediaSvc.cfg.MaxWidth {
		return domain.Content{}, fmt.Errorf("%w: %d", domain.ErrInvalidWidth, width)
	}

	if width == 0 {
		dataBlob, err := mediaSvc.dataRepo.Fetch(ctx, ref.Path)
		if err != nil {
			return domain.Content{}, fmt.Errorf("fetch data: %w", err)
		}

		return domain.Content{MIMEType: ref.MIMEType, Data: dataBlob.Bytes()}, nil
	}

	// Try serve from cache
	cacheID := ref.Path.Variant("w" + strconv.Itoa(width))

	cacheBlob, err := mediaSvc.cacheRepo.Fetch(ctx, cacheID)
	if err == nil {
		log = log.With(logging.Group("media", "cached", true))

		return domain.Content{MIMEType: ref.MIMEType, Data: cacheBlob.Bytes()}, nil
	} else if !errors.Is(err, domain.ErrBlobNotFound) {
		return domain.Content{}, fmt.Errorf("fetch cache: %w", err)
	}

	if mediaSvc.cacheMisses != nil {
		mediaSvc.cacheMisses.Inc()
	}

	dataBlob, err := mediaSvc.dataRepo.Fetch(ctx, ref.Path)
	if err != nil {
		return domain.Content{}, fmt.Errorf("fetch data: %w", err)
	}

	resized, err := resizeImage(dataBlob.Bytes(), ref.MIMEType, width, mediaSvc.interpol)
	if err != nil {
		return domain.Content{}, fmt.Errorf("resize image: %w", err)
	}

	// Update cache
	if err := mediaSvc.cacheRepo.Store(ctx, domain.NewBlob(cacheID, resized)); err != nil {
		return domain.Content{}, fmt.Errorf("store cache: %w", err)
	}

	return domain.Content{MIMEType: ref.MIMEType, Data: resized}, nil
}

// Delete implements MediaService.Delete. Variants are removed before the original.
func (mediaSvc *BlobMediaService) Delete(ctx context.Context, id domain.BlobID) (found bool, err error) {
	log := mediaSvc.log.With(logging.Group("media", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "media delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "media deleted", "found", found)
		}
	}()

	if err := mediaSvc.cacheRepo.DeleteVariants(ctx, id); err != nil {
		return false, fmt.Errorf("delete variants: %w", err)
	}

	if err := mediaSvc.dataRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("delete data: %w", err)
	}

	return true, nil
}
