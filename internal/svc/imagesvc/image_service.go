package imagesvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/image"
	"github.com/mkrupp/webgallery/internal/svc/cascadesvc"
	"github.com/mkrupp/webgallery/internal/svc/guard"
	"github.com/mkrupp/webgallery/internal/svc/mediasvc"
	"github.com/mkrupp/webgallery/internal/util/clock"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

// Upload is a new image as submitted by a client.
type Upload struct {
	Title    string
	Author   string
	Filename string
	Data     []byte
}

// Deleter performs the dependent deletes of an image.
type Deleter interface {
	DeleteImageCascade(ctx context.Context, id, requester string) (*cascadesvc.Result, error)
}

// ImageService is the gallery: image records in the image repository, their content
// in the media service.
type ImageService struct {
	images   image.Repository
	mediaSvc mediasvc.MediaService
	deleter  Deleter
	guard    *guard.Guard
	clock    clock.Clock
	log      logging.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(
	repoFactory image.RepositoryFactory,
	mediaSvc mediasvc.MediaService,
	deleter Deleter,
	g *guard.Guard,
	clk clock.Clock,
) (*ImageService, error) {
	images, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new image repo: %w", err)
	}

	return &ImageService{
		images:   images,
		mediaSvc: mediaSvc,
		deleter:  deleter,
		guard:    g,
		clock:    clk,
		log:      logging.GetLogger("svc.imagesvc.image_service"),
	}, nil
}

// CheckUploadConstraints validates an upload by name and size before its content is read.
func (s *ImageService) CheckUploadConstraints(filename string, size int64) error {
	if _, err := s.mediaSvc.CheckUploadConstraints(filename, size, nil); err != nil {
		return fmt.Errorf("check upload constraints: %w", err)
	}

	return nil
}

// AuthorizeUpload reports whether identity may create images at all. With enforcement on
// an anonymous requester is rejected with guard.ErrAnonymous.
func (s *ImageService) AuthorizeUpload(identity string) error {
	if err := s.guard.Authorize(identity, "", guard.ActionCreate); err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	return nil
}

// MaxSize returns the maximum allowed file size in bytes.
func (s *ImageService) MaxSize() int64 {
	return s.mediaSvc.MaxSize()
}

// Create stores the content of upload and records the image. With enforcement on the
// author is the requester.
func (s *ImageService) Create(ctx context.Context, identity string, upload Upload) (_ *domain.Image, err error) {
	log := s.log.With(logging.Group("image",
		"title", upload.Title,
		"filename", upload.Filename,
		"size", len(upload.Data),
	))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "image create failed", "error", err)
		} else {
			log.InfoContext(ctx, "image created")
		}
	}()

	if err := s.AuthorizeUpload(identity); err != nil {
		return nil, err
	}

	author := strings.TrimSpace(upload.Author)
	if s.guard.Enforced() {
		author = identity
	}

	switch {
	case strings.TrimSpace(upload.Title) == "":
		return nil, domain.ErrNoTitle
	case author == "":
		return nil, domain.ErrNoAuthor
	case len(upload.Data) == 0:
		return nil, domain.ErrNoBlob
	}

	id, err := ids.New()
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("new id: %w", err))
	}

	log = log.With(logging.Group("image", "id", id, "author", author))

	ref, err := s.mediaSvc.Store(ctx, domain.BlobID(id), upload.Filename, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	newImage := domain.Image{
		ID:        id,
		Title:     upload.Title,
		Author:    author,
		Blob:      ref,
		CreatedAt: s.clock.Now(),
	}

	if err := s.images.CreateImage(ctx, newImage); err != nil {
		if _, delErr := s.mediaSvc.Delete(ctx, ref.Path); delErr != nil {
			log.ErrorContext(ctx, "orphaned blob", "blob", ref.Path, "error", delErr)
		}

		return nil, fmt.Errorf("create image: %w", err)
	}

	return &newImage, nil
}

// Get returns the image with the given id.
func (s *ImageService) Get(ctx context.Context, identity, id string) (*domain.Image, error) {
	if err := s.guard.Authorize(identity, "", guard.ActionRead); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	id, ok := ids.Parse(id)
	if !ok {
		return nil, domain.ErrImageNotFound
	}

	found, err := s.images.GetImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}

	return found, nil
}

// List returns the images matching filter, newest first.
func (s *ImageService) List(ctx context.Context, identity string, filter domain.ImageFilter) ([]domain.Image, error) {
	if err := s.guard.Authorize(identity, "", guard.ActionRead); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	images, err := s.images.ListImages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	return images, nil
}

// Content returns the bytes of an image, scaled to width when width is positive.
func (s *ImageService) Content(ctx context.Context, identity, id string, width int) (domain.Content, error) {
	found, err := s.Get(ctx, identity, id)
	if err != nil {
		return domain.Content{}, err
	}

	content, err := s.mediaSvc.Fetch(ctx, found.Blob, width)
	if err != nil {
		return domain.Content{}, fmt.Errorf("fetch media: %w", domain.StorageError(err))
	}

	return content, nil
}

// Delete removes an image together with its content and comments and returns it.
func (s *ImageService) Delete(ctx context.Context, identity, id string) (*domain.Image, error) {
	result, err := s.deleter.DeleteImageCascade(ctx, id, identity)
	if err != nil {
		return nil, fmt.Errorf("delete image: %w", err)
	}

	return &result.Image, nil
}
