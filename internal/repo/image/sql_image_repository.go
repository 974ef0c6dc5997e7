package image

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

const imageColumns = "id, title, author, blob_path, mime_type, size, created_at"

// SQLImageRepository implements Repository on the shared SQL database.
type SQLImageRepository struct {
	db        *database.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLImageRepository)(nil)

// SQLImageRepositoryFactory creates a factory function that returns a new SQLImageRepository.
func SQLImageRepositoryFactory(db *database.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLImageRepository(db), nil
	}
}

// NewSQLImageRepository creates a new SQLImageRepository.
func NewSQLImageRepository(db *database.DB) *SQLImageRepository {
	return &SQLImageRepository{
		db:        db,
		log:       logging.GetLogger("repo.image.sql"),
		writeLock: new(sync.Mutex),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(row scanner) (*domain.Image, error) {
	var (
		image     domain.Image
		blobPath  string
		createdAt int64
	)

	if err := row.Scan(
		&image.ID,
		&image.Title,
		&image.Author,
		&blobPath,
		&image.Blob.MIMEType,
		&image.Blob.Size,
		&createdAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	image.Blob.Path = domain.BlobID(blobPath)
	image.CreatedAt = database.UnixNano(createdAt)

	return &image, nil
}

func (r *SQLImageRepository) CreateImage(ctx context.Context, image domain.Image) (err error) {
	defer func() {
		log := r.log.With(logging.Group("image", "id", image.ID))
		if err != nil {
			log.ErrorContext(ctx, "insert image failed", "error", err)
		} else {
			log.DebugContext(ctx, "image inserted")
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO images ("+imageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)"),
		image.ID,
		image.Title,
		image.Author,
		image.Blob.Path.String(),
		image.Blob.MIMEType,
		image.Blob.Size,
		image.CreatedAt.UnixNano(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Join(domain.ErrConflict, err)
		}

		return errors.Join(domain.ErrStorage, fmt.Errorf("insert image: %w", err))
	}

	return nil
}

func (r *SQLImageRepository) GetImage(ctx context.Context, id string) (*domain.Image, error) {
	image, err := scanImage(r.db.QueryRowContext(ctx, r.db.Rebind(
		"SELECT "+imageColumns+" FROM images WHERE id = ?"), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
		}

		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query image: %w", err))
	}

	return image, nil
}

func (r *SQLImageRepository) ListImages(ctx context.Context, filter domain.ImageFilter) (_ []domain.Image, err error) {
	var rows *sql.Rows

	if filter.Author != "" {
		rows, err = r.db.QueryContext(ctx, r.db.Rebind(
			"SELECT "+imageColumns+" FROM images WHERE author = ? ORDER BY created_at DESC, seq DESC"),
			filter.Author)
	} else {
		rows, err = r.db.QueryContext(ctx,
			"SELECT "+imageColumns+" FROM images ORDER BY created_at DESC, seq DESC")
	}

	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query images: %w", err))
	}
	defer rows.Close()

	images := []domain.Image{}

	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, errors.Join(domain.ErrStorage, fmt.Errorf("scan image: %w", err))
		}

		images = append(images, *image)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("iterate images: %w", err))
	}

	return images, nil
}

func (r *SQLImageRepository) DeleteImage(ctx context.Context, id string) (err error) {
	defer func() {
		log := r.log.With(logging.Group("image", "id", id))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.ErrorContext(ctx, "delete image failed", "error", err)
		} else {
			log.DebugContext(ctx, "image deleted", "found", err == nil)
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM images WHERE id = ?"), id)
	if err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("delete image: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("rows affected: %w", err))
	} else if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrImageNotFound, id)
	}

	return nil
}
