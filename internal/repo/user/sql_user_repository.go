package user

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

// SQLUserRepository implements Repository on the shared SQL database.
type SQLUserRepository struct {
	db        *database.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLUserRepository)(nil)

// SQLUserRepositoryFactory creates a factory function that returns a new SQLUserRepository.
func SQLUserRepositoryFactory(db *database.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLUserRepository(db), nil
	}
}

// NewSQLUserRepository creates a new SQLUserRepository. The schema is owned by the
// database migrations.
func NewSQLUserRepository(db *database.DB) *SQLUserRepository {
	return &SQLUserRepository{
		db:        db,
		log:       logging.GetLogger("repo.user.sql").With(logging.Group("db", "dialect", db.Dialect())),
		writeLock: new(sync.Mutex),
	}
}

// CreateUser implements Repository.CreateUser.
func (r *SQLUserRepository) CreateUser(ctx context.Context, user domain.User) (err error) {
	defer func() {
		log := r.log.With(logging.Group("user", "username", user.Username))
		if err != nil {
			log.DebugContext(ctx, "insert user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user inserted")
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO users (username, salt, salted_hash, created_at) VALUES (?, ?, ?, ?)"),
		user.Username,
		user.Salt,
		user.SaltedHash,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errors.Join(domain.ErrUserAlreadyExists, err)
		}

		return errors.Join(domain.ErrStorage, fmt.Errorf("insert user: %w", err))
	}

	return nil
}

// GetUserByUsername implements Repository.GetUserByUsername.
func (r *SQLUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, bool, error) {
	var (
		user      domain.User
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		"SELECT username, salt, salted_hash, created_at FROM users WHERE username = ?"),
		username,
	).Scan(&user.Username, &user.Salt, &user.SaltedHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, errors.Join(domain.ErrStorage, fmt.Errorf("query user: %w", err))
	}

	user.CreatedAt = database.UnixNano(createdAt)

	return &user, true, nil
}

// ListUsernames implements Repository.ListUsernames.
func (r *SQLUserRepository) ListUsernames(ctx context.Context) (_ []string, err error) {
	rows, err := r.db.QueryContext(ctx, "SELECT username FROM users ORDER BY username")
	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("query users: %w", err))
	}
	defer rows.Close()

	usernames := []string{}

	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, errors.Join(domain.ErrStorage, fmt.Errorf("scan user: %w", err))
		}

		usernames = append(usernames, username)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("iterate users: %w", err))
	}

	return usernames, nil
}
