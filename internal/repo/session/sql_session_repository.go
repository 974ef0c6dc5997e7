package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

// SQLSessionRepository implements Repository on the shared SQL database.
type SQLSessionRepository struct {
	db        *database.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLSessionRepository)(nil)

// SQLSessionRepositoryFactory creates a factory function that returns a new SQLSessionRepository.
func SQLSessionRepositoryFactory(db *database.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLSessionRepository(db), nil
	}
}

// NewSQLSessionRepository creates a new SQLSessionRepository.
func NewSQLSessionRepository(db *database.DB) *SQLSessionRepository {
	return &SQLSessionRepository{
		db:        db,
		log:       logging.GetLogger("repo.session.sql"),
		writeLock: new(sync.Mutex),
	}
}

func (r *SQLSessionRepository) CreateSession(ctx context.Context, session domain.Session) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO sessions (token_hash, username, created_at, expires_at) VALUES (?, ?, ?, ?)"),
		session.Token,
		session.Username,
		session.CreatedAt.UnixNano(),
		session.ExpiresAt.UnixNano(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Join(domain.ErrConflict, err)
		}

		return errors.Join(domain.ErrStorage, fmt.Errorf("insert session: %w", err))
	}

	return nil
}

func (r *SQLSessionRepository) ResolveSession(
	ctx context.Context,
	digest string,
	now time.Time,
) (*domain.Session, bool, error) {
	var (
		session              domain.Session
		createdAt, expiresAt int64
	)

	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT s.token_hash, s.username, s.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.username = s.username
		WHERE s.token_hash = ? AND s.expires_at > ?`),
		digest,
		now.UnixNano(),
	).Scan(&session.Token, &session.Username, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, errors.Join(domain.ErrStorage, fmt.Errorf("query session: %w", err))
	}

	session.CreatedAt = database.UnixNano(createdAt)
	session.ExpiresAt = database.UnixNano(expiresAt)

	return &session, true, nil
}

func (r *SQLSessionRepository) ExtendSession(ctx context.Context, digest string, expiresAt time.Time) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE sessions SET expires_at = ? WHERE token_hash = ? AND expires_at < ?"),
		expiresAt.UnixNano(),
		digest,
		expiresAt.UnixNano(),
	); err != nil {
		return errors.Join(domain.ErrStorage, fmt.Errorf("update session: %w", err))
	}

	return nil
}

func (r *SQLSessionRepository) DeleteSession(ctx context.Context, digest string) (bool, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM sessions WHERE token_hash = ?"), digest)
	if err != nil {
		return false, errors.Join(domain.ErrStorage, fmt.Errorf("delete session: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Join(domain.ErrStorage, fmt.Errorf("rows affected: %w", err))
	}

	return n > 0, nil
}

func (r *SQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (n int64, err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "delete expired sessions failed", "error", err)
		} else if n > 0 {
			r.log.DebugContext(ctx, "expired sessions deleted", "count", n)
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.UnixNano())
	if err != nil {
		return 0, errors.Join(domain.ErrStorage, fmt.Errorf("delete expired sessions: %w", err))
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, errors.Join(domain.ErrStorage, fmt.Errorf("rows affected: %w", err))
	}

	return n, nil
}
