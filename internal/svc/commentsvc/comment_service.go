package commentsvc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/comment"
	"github.com/mkrupp/webgallery/internal/svc/guard"
	"github.com/mkrupp/webgallery/internal/util/clock"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

var (
	ErrInvalidImageID = fmt.Errorf("%w: invalid image id", domain.ErrValidation)
	ErrContentTooLong = fmt.Errorf("%w: content too long", domain.ErrValidation)
)

// CommentService manages the comments left on images.
type CommentService struct {
	comments comment.Repository
	guard    *guard.Guard
	clock    clock.Clock
	cfg      CommentConfig
	log      logging.Logger
}

// NewCommentService creates a new CommentService over the given comment repository.
func NewCommentService(
	repoFactory comment.RepositoryFactory,
	g *guard.Guard,
	clk clock.Clock,
	cfg CommentConfig,
) (*CommentService, error) {
	comments, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new comment repo: %w", err)
	}

	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size %d", domain.ErrValidation, cfg.PageSize)
	}

	return &CommentService{
		comments: comments,
		guard:    g,
		clock:    clk,
		cfg:      cfg,
		log:      logging.GetLogger("svc.commentsvc.comment_service"),
	}, nil
}

// PageSize returns the number of comments per page.
func (s *CommentService) PageSize() int {
	return s.cfg.PageSize
}

// ParsePage coerces a page query parameter. Missing, malformed and negative input is page 0.
// A positive number too large for an int is the last representable page.
func ParsePage(input string) int {
	input = strings.TrimSpace(input)

	page, err := strconv.Atoi(input)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(input, "-") {
		return math.MaxInt
	}

	if err != nil || page < 0 {
		return 0
	}

	return page
}

// Create adds a comment to an image. The image is not required to exist.
// With enforcement on the author is the requester; otherwise the supplied author is
// used, falling back to the configured anonymous name.
func (s *CommentService) Create(
	ctx context.Context,
	identity, imageID, author, content string,
) (_ *domain.Comment, err error) {
	log := s.log.With(logging.Group("comment", "imageId", imageID, "author", identity))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "comment create failed", "error", err)
		} else {
			log.DebugContext(ctx, "comment created")
		}
	}()

	if err := s.guard.Authorize(identity, "", guard.ActionCreate); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	imageID, ok := ids.Parse(imageID)
	if !ok {
		return nil, ErrInvalidImageID
	}

	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrNoContent
	}

	if len(content) > s.cfg.MaxContentLength {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrContentTooLong, len(content), s.cfg.MaxContentLength)
	}

	switch {
	case s.guard.Enforced():
		author = identity
	case strings.TrimSpace(author) == "":
		author = s.cfg.AnonymousAuthor
	}

	id, err := ids.New()
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("new id: %w", err))
	}

	newComment := domain.Comment{
		ID:        id,
		ImageID:   imageID,
		Author:    author,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}

	log = log.With(logging.Group("comment", "id", id))

	if err := s.comments.CreateComment(ctx, newComment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	return &newComment, nil
}

// List returns one page of the comments of an image, newest first.
// A page past the end is empty.
func (s *CommentService) List(ctx context.Context, identity, imageID string, page int) ([]domain.Comment, error) {
	if err := s.guard.Authorize(identity, "", guard.ActionRead); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	imageID, ok := ids.Parse(imageID)
	if !ok {
		return []domain.Comment{}, nil
	}

	page = max(page, 0)
	if page > math.MaxInt/s.cfg.PageSize {
		return []domain.Comment{}, nil
	}

	comments, err := s.comments.ListComments(ctx, imageID, page*s.cfg.PageSize, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}

// Delete removes a comment. With enforcement on only its author may delete it.
func (s *CommentService) Delete(ctx context.Context, identity, id string) (_ *domain.Comment, err error) {
	log := s.log.With(logging.Group("comment", "id", id), logging.Group("user", "username", identity))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "comment delete failed", "error", err)
		} else {
			log.InfoContext(ctx, "comment deleted")
		}
	}()

	id, ok := ids.Parse(id)
	if !ok {
		return nil, domain.ErrCommentNotFound
	}

	found, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}

	if err := s.guard.Authorize(identity, found.Author, guard.ActionDelete); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}

	return found, nil
}

// DeleteAllForImage removes every comment of an image. It is idempotent.
func (s *CommentService) DeleteAllForImage(ctx context.Context, imageID string) (int64, error) {
	n, err := s.comments.DeleteCommentsForImage(ctx, imageID)
	if err != nil {
		return 0, fmt.Errorf("delete comments for image: %w", err)
	}

	return n, nil
}
