package authsvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mkrupp/webgallery/internal/domain"
	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	http_ "github.com/mkrupp/webgallery/internal/infra/transport/http"
)

// HTTPTransport handles HTTP requests for the authentication service.
type HTTPTransport struct {
	authSvc *AuthService
	cookies http_.CookieConfig
	log     logging.Logger
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance.
func NewHTTPTransport(authSvc *AuthService, cookies http_.CookieConfig) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		cookies: cookies,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		mux:     http.NewServeMux(),
	}

	ht.RegisterRoutes(ht.mux)

	return ht
}

// RegisterRoutes mounts the auth endpoints:
//   - POST /api/signup: register and sign in
//   - POST /api/signin: sign in
//   - GET /api/signout: end the current session
//   - GET /api/users: list usernames
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signup", ht.HandleSignup)
	mux.HandleFunc("POST /api/signin", ht.HandleSignin)
	mux.Handle("GET /api/signout", http_.RequireIdentity(http.HandlerFunc(ht.HandleSignout)))
	mux.HandleFunc("GET /api/users", ht.HandleUsers)
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleSignup registers a user. Expects username and password as JSON or form fields.
func (ht *HTTPTransport) HandleSignup(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCredentials(w, r, http.StatusCreated, "signup", ht.authSvc.Signup)
}

// HandleSignin signs a user in. Expects username and password as JSON or form fields.
func (ht *HTTPTransport) HandleSignin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCredentials(w, r, http.StatusOK, "signin", ht.authSvc.Signin)
}

type credentialsFunc func(ctx context.Context, username, password string) (*domain.User, *domain.Session, error)

func (ht *HTTPTransport) handleCredentials(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	op string,
	fn credentialsFunc,
) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, op+" failed", "error", err)
		} else {
			log.DebugContext(ctx, op+" succeeded")
		}
	}(r.Context())

	values, err := http_.ReadValues(w, r)
	if err != nil {
		return err
	}

	username, password := values.Get("username"), values.Get("password")
	log = log.With(logging.Group("user", "username", username))

	found, sess, err := fn(r.Context(), username, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	http_.SetSessionCookies(w, ht.cookies, sess.Token, found.Username, ht.authSvc.Sessions.Duration())

	if err := http_.WriteJSON(w, status, found.Safe()); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

// HandleSignout destroys the current session and clears the cookies.
func (ht *HTTPTransport) HandleSignout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSignout(w, r)
}

func (ht *HTTPTransport) handleSignout(w http.ResponseWriter, r *http.Request) (err error) {
	ctx := r.Context()
	username, _ := context_.IdentityFromContext(ctx)
	log := ht.log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "signout failed", "error", err)
		} else {
			log.DebugContext(ctx, "signed out")
		}
	}()

	token, _ := context_.SessionTokenFromContext(ctx)

	if err := ht.authSvc.Signout(ctx, token); err != nil {
		return fmt.Errorf("signout: %w", err)
	}

	http_.ClearSessionCookies(w, ht.cookies)

	if err := http_.WriteJSON(w, http.StatusOK, domain.UserResponse{Username: username}); err != nil {
		log.WarnContext(ctx, "encode response failed", "error", err)
	}

	return nil
}

// HandleUsers lists all usernames.
func (ht *HTTPTransport) HandleUsers(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUsers(w, r)
}

func (ht *HTTPTransport) handleUsers(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			ht.log.ErrorContext(ctx, "list users failed", "error", err)
		}
	}(r.Context())

	usernames, err := ht.authSvc.Users(r.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, usernames); err != nil {
		ht.log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}
