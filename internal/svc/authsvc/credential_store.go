package authsvc

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/user"
	"github.com/mkrupp/webgallery/internal/util/clock"
)

var ErrInvalidUsername = fmt.Errorf("%w: invalid username", domain.ErrValidation)

// CredentialStore registers users and verifies their passwords.
// Passwords are stored as an Argon2id digest under a per-user random salt.
type CredentialStore struct {
	users user.Repository
	cfg   AuthConfig
	clock clock.Clock
	log   logging.Logger

	dummySalt []byte
	dummyHash []byte
}

// NewCredentialStore creates a new CredentialStore over the given user repository.
func NewCredentialStore(repoFactory user.RepositoryFactory, cfg AuthConfig, clk clock.Clock) (*CredentialStore, error) {
	users, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	store := &CredentialStore{
		users:     users,
		cfg:       cfg,
		clock:     clk,
		log:       logging.GetLogger("svc.authsvc.credential_store"),
		dummySalt: make([]byte, cfg.Hash.SaltSize),
	}

	store.dummyHash = store.derive("", store.dummySalt)

	return store, nil
}

func (s *CredentialStore) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, s.cfg.Hash.Time, s.cfg.Hash.MemoryKiB, s.cfg.Hash.Threads, s.cfg.Hash.KeyLength)
}

func (s *CredentialStore) validateUsername(username string) error {
	if username == "" {
		return domain.ErrNoUsername
	}

	if len(username) > s.cfg.MaxUsernameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidUsername, s.cfg.MaxUsernameLength)
	}

	if strings.IndexFunc(username, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) >= 0 {
		return fmt.Errorf("%w: contains whitespace or control characters", ErrInvalidUsername)
	}

	return nil
}

// Signup registers a new user. Returns domain.ErrUserAlreadyExists if the username is taken.
func (s *CredentialStore) Signup(ctx context.Context, username, password string) (_ *domain.User, err error) {
	log := s.log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "signup failed", "error", err)
		} else {
			log.InfoContext(ctx, "user signed up")
		}
	}()

	if err := s.validateUsername(username); err != nil {
		return nil, err
	}

	if password == "" {
		return nil, domain.ErrNoPassword
	}

	salt := make([]byte, s.cfg.Hash.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Join(domain.ErrStorage, fmt.Errorf("generate salt: %w", err))
	}

	newUser := domain.User{
		Username:   username,
		Salt:       salt,
		SaltedHash: s.derive(password, salt),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.users.CreateUser(ctx, newUser); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &newUser, nil
}

// Verify checks a username/password pair. Unknown users and wrong passwords both
// yield domain.ErrInvalidCredentials after the same amount of hashing work.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (_ *domain.User, err error) {
	log := s.log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "verify failed", "error", err)
		} else {
			log.DebugContext(ctx, "credentials verified")
		}
	}()

	if username == "" {
		return nil, domain.ErrNoUsername
	}

	if password == "" {
		return nil, domain.ErrNoPassword
	}

	found, ok, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	salt, want := s.dummySalt, s.dummyHash
	if ok {
		salt, want = found.Salt, found.SaltedHash
	}

	got := s.derive(password, salt)

	if subtle.ConstantTimeCompare(got, want) != 1 || !ok {
		return nil, domain.ErrInvalidCredentials
	}

	return found, nil
}

// ListUsernames returns every registered username in ascending order.
func (s *CredentialStore) ListUsernames(ctx context.Context) ([]string, error) {
	usernames, err := s.users.ListUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}

	return usernames, nil
}
