package authsvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/logging"
)

// AuthService ties credential checks to session issuance.
type AuthService struct {
	Credentials *CredentialStore
	Sessions    *SessionManager
	log         logging.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(credentials *CredentialStore, sessions *SessionManager) *AuthService {
	return &AuthService{
		Credentials: credentials,
		Sessions:    sessions,
		log:         logging.GetLogger("svc.authsvc.auth_service"),
	}
}

// Signup registers the user and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*domain.User, *domain.Session, error) {
	newUser, err := s.Credentials.Signup(ctx, username, password)
	if err != nil {
		return nil, nil, fmt.Errorf("signup: %w", err)
	}

	sess, err := s.Sessions.Create(ctx, newUser.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	return newUser, sess, nil
}

// Signin verifies the credentials and opens a session.
func (s *AuthService) Signin(ctx context.Context, username, password string) (*domain.User, *domain.Session, error) {
	found, err := s.Credentials.Verify(ctx, username, password)
	if err != nil {
		return nil, nil, fmt.Errorf("verify: %w", err)
	}

	sess, err := s.Sessions.Create(ctx, found.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	return found, sess, nil
}

// Signout destroys the session identified by token.
func (s *AuthService) Signout(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrNoSession
	}

	if err := s.Sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}

	return nil
}

// Users returns all registered usernames.
func (s *AuthService) Users(ctx context.Context) ([]string, error) {
	return s.Credentials.ListUsernames(ctx) //nolint:wrapcheck
}
