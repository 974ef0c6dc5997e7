// Package cascadesvc sequences the multi-collection delete of an image.
package cascadesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/image"
	"github.com/mkrupp/webgallery/internal/svc/guard"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

// BlobDeleter removes the binary content of an image together with its cached variants.
// A missing blob reports found=false without an error.
type BlobDeleter interface {
	Delete(ctx context.Context, id domain.BlobID) (found bool, err error)
}

// CommentDeleter removes every comment of an image.
type CommentDeleter interface {
	DeleteAllForImage(ctx context.Context, imageID string) (int64, error)
}

// Result describes a completed cascade.
type Result struct {
	Image           domain.Image
	CommentsDeleted int64
}

// Counters are the metrics the coordinator updates. Both may be nil.
type Counters struct {
	Completed      prometheus.Counter
	PartialFailure prometheus.Counter
}

// Coordinator deletes an image and everything that depends on it.
// There is no cross-collection transaction: the steps run one after the other in a
// fixed order.
type Coordinator struct {
	images   image.Repository
	blobs    BlobDeleter
	comments CommentDeleter
	guard    *guard.Guard
	counters Counters
	log      logging.Logger
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(
	repoFactory image.RepositoryFactory,
	blobs BlobDeleter,
	comments CommentDeleter,
	g *guard.Guard,
	counters Counters,
) (*Coordinator, error) {
	images, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new image repo: %w", err)
	}

	return &Coordinator{
		images:   images,
		blobs:    blobs,
		comments: comments,
		guard:    g,
		counters: counters,
		log:      logging.GetLogger("svc.cascadesvc.coordinator"),
	}, nil
}

// DeleteImageCascade runs, in order: locate the image, authorize the requester, delete the
// blob, delete the image record, delete the comments.
//
// A failed blob delete leaves the record intact. A missing blob counts as deleted so an
// interrupted cascade can be retried. A failed comment delete after the record is gone
// is returned as domain.ErrPartialFailure; the image is not restored.
func (c *Coordinator) DeleteImageCascade(ctx context.Context, id, requester string) (_ *Result, err error) {
	log := c.log.With(logging.Group("image", "id", id), logging.Group("user", "username", requester))

	defer func() {
		switch {
		case errors.Is(err, domain.ErrPartialFailure):
			log.ErrorContext(ctx, "image cascade incomplete", "error", err)
		case err != nil:
			log.WarnContext(ctx, "image cascade failed", "error", err)
		}
	}()

	id, ok := ids.Parse(id)
	if !ok {
		return nil, domain.ErrImageNotFound
	}

	// (a) locate
	found, err := c.images.GetImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}

	// (b) authorize
	if err := c.guard.Authorize(requester, found.Author, guard.ActionDelete); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	// (c) blob and cached variants
	blobFound, err := c.blobs.Delete(ctx, found.Blob.Path)
	if err != nil {
		return nil, fmt.Errorf("delete blob: %w", domain.StorageError(err))
	}

	if !blobFound {
		log.WarnContext(ctx, "image blob already missing", "blob", found.Blob.Path)
	}

	// (d) record
	if err := c.images.DeleteImage(ctx, id); err != nil {
		return nil, fmt.Errorf("delete image record: %w", domain.StorageError(err))
	}

	// (e) comments
	n, err := c.comments.DeleteAllForImage(ctx, id)
	if err != nil {
		if c.counters.PartialFailure != nil {
			c.counters.PartialFailure.Inc()
		}

		return nil, fmt.Errorf("%w: delete comments: %w", domain.ErrPartialFailure, err)
	}

	if c.counters.Completed != nil {
		c.counters.Completed.Inc()
	}

	log.InfoContext(ctx, "image deleted", "comments", n)

	return &Result{Image: *found, CommentsDeleted: n}, nil
}
