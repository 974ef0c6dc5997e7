package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

const commentColumns = "id, image_id, author, content, created_at"

// SQLCommentRepository implements Repository on the shared SQL database.
type SQLCommentRepository struct {
	db        *database.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLCommentRepository)(nil)

// SQLCommentRepositoryFactory creates a factory function that returns a new SQLCommentRepository.
func SQLCommentRepositoryFactory(db *database.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLCommentRepository(db), nil
	}
}

// NewSQLCommentRepository creates a new SQLCommentRepository.
func NewSQLCommentRepository(db *database.DB) *SQLCommentRepository {
	return &SQLCommentRepository{
		db:        db,
		log:       logging.GetLogger("repo.comment.sql"),
		writeLock: new(sync.Mutex),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(row scanner) (*domain.Comment, error) {
	var (
		comment   domain.Comment
		createdAt int64
	)

	if err := row.Scan(&comment.ID, &comment.ImageID, &comment.Author, &comment.Content, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck
	}

	comment.CreatedAt = database.UnixNano(createdAt)

	return &comment, nil
}

func (r *SQLCommentRepository) CreateComment(ctx context.Context, comment domain.Comment) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO comments ("+commentColumns+") VALUES (?, ?, ?, ?, ?)"),
		comment.ID,
		comment.ImageID,
		comment.Author,
		comment.Content,
		comment.CreatedAt.UnixNano(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Join(domain.ErrConflict, err)
		}

		return errors.Join(domain.ErrStorage, fmt.Errorf("insert comment: %w", err))
	}

	return nil
}

func (r *SQLCommentRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := scanComment(r.db.QueryRowContext(ctx, r.db.Rebind(
		"SELECT "+commentColumns+" FROM comments WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCommentNotFound, id)
		}

		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query comment: %w", err))
	}

	return comment, nil
}

func (r *SQLCommentRepository) ListComments(
	ctx context.Context,
	imageID string,
	offset, limit int,
) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		"SELECT "+commentColumns+" FROM comments WHERE image_id = ? "+
			"ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"),
		imageID, limit, offset)
	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query comments: %w", err))
	}
	defer rows.Close()

	comments := []domain.Comment{}

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, errors.Join(domain.ErrStorage, fmt.Errorf("scan comment: %w", err))
		}

		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("iterate comments: %w", err))
	}

	return comments, nil
}

func (r *SQLCommentRepository) DeleteComment(ctx context.Context, id string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM comments WHERE id = ?"), id)
	if err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("delete comment: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("rows affected: %w", err))
	} else if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCommentNotFound, id)
	}

	return nil
}

func (r *SQLCommentRepository) DeleteCommentsForImage(ctx context.Context, imageID string) (n int64, err error) {
	defer func() {
		log := r.log.With(logging.Group("image", "id", imageID))
		if err != nil {
			log.ErrorContext(ctx, "delete image comments failed", "error", err)
		} else {
			log.DebugContext(ctx, "image comments deleted", "count", n)
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM comments WHERE image_id = ?"), imageID)
	if err != nil {
		return 0, errors.Join(domain.ErrStorage, fmt.Errorf("delete comments: %w", err))
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, errors.Join(domain.ErrStorage, fmt.Errorf("rows affected: %w", err))
	}

	return n, nil
}
