package authsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/session"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

// SessionManager binds opaque tokens to usernames on the server side.
// Only the SHA-256 digest of a token is persisted.
type SessionManager struct {
	sessions session.Repository
	cfg      AuthConfig
	now      func() time.Time
	purged   prometheus.Counter
	log      logging.Logger
}

// NewSessionManager creates a new SessionManager. purged may be nil.
func NewSessionManager(
	repoFactory session.RepositoryFactory,
	cfg AuthConfig,
	now func() time.Time,
	purged prometheus.Counter,
) (*SessionManager, error) {
	sessions, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new session repo: %w", err)
	}

	return &SessionManager{
		sessions: sessions,
		cfg:      cfg,
		now:      now,
		purged:   purged,
		log:      logging.GetLogger("svc.authsvc.session_manager"),
	}, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// Duration returns the lifetime of new sessions.
func (m *SessionManager) Duration() time.Duration {
	return m.cfg.SessionDuration
}

// Create opens a session for username and returns it with the raw token.
func (m *SessionManager) Create(ctx context.Context, username string) (_ *domain.Session, err error) {
	defer func() {
		if err != nil {
			m.log.ErrorContext(ctx, "create session failed", "error", err)
		}
	}()

	token, err := ids.Token()
	if err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("generate token: %w", err))
	}

	now := m.now().UTC()
	sess := domain.Session{
		Token:     digest(token),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.SessionDuration),
	}

	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess.Token = token

	return &sess, nil
}

// Resolve returns the username bound to token. Missing, unknown and expired tokens
// resolve to ok=false without an error; only storage failures are errors.
func (m *SessionManager) Resolve(ctx context.Context, token string) (_ string, _ bool, err error) {
	if token == "" {
		return "", false, nil
	}

	key := digest(token)
	now := m.now().UTC()

	sess, ok, err := m.sessions.ResolveSession(ctx, key, now)
	if err != nil {
		return "", false, fmt.Errorf("resolve session: %w", err)
	} else if !ok {
		return "", false, nil
	}

	if m.cfg.SessionSliding {
		if err := m.sessions.ExtendSession(ctx, key, now.Add(m.cfg.SessionDuration)); err != nil {
			m.log.WarnContext(ctx, "extend session failed", "error", err)
		}
	}

	return sess.Username, true, nil
}

// Destroy ends the session of token. Destroying an unknown session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if _, err := m.sessions.DeleteSession(ctx, digest(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// PurgeExpired removes every expired session.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}

	if m.purged != nil {
		m.purged.Add(float64(n))
	}

	return n, nil
}

// RunJanitor purges expired sessions every interval until ctx is cancelled.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.DebugContext(ctx, "session janitor started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.PurgeExpired(ctx); err != nil {
				m.log.ErrorContext(ctx, "purge expired sessions failed", "error", err)
			} else if n > 0 {
				m.log.InfoContext(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
