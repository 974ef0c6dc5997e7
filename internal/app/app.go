// Package app assembles the gallery services over one database and one blob store.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mkrupp/webgallery/internal/infra/database"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/infra/metrics"
	http_ "github.com/mkrupp/webgallery/internal/infra/transport/http"
	"github.com/mkrupp/webgallery/internal/repo/blob"
	"github.com/mkrupp/webgallery/internal/repo/comment"
	"github.com/mkrupp/webgallery/internal/repo/image"
	"github.com/mkrupp/webgallery/internal/repo/session"
	"github.com/mkrupp/webgallery/internal/repo/user"
	"github.com/mkrupp/webgallery/internal/svc/authsvc"
	"github.com/mkrupp/webgallery/internal/svc/cascadesvc"
	"github.com/mkrupp/webgallery/internal/svc/commentsvc"
	"github.com/mkrupp/webgallery/internal/svc/guard"
	"github.com/mkrupp/webgallery/internal/svc/imagesvc"
	"github.com/mkrupp/webgallery/internal/svc/mediasvc"
	"github.com/mkrupp/webgallery/internal/util/clock"
)

// Config holds the configuration of every component.
type Config struct {
	DB        database.Config              `envPrefix:"DB_"`
	Blob      blob.Config                  `envPrefix:"BLOB_"`
	Auth      authsvc.AuthConfig           `envPrefix:"AUTH_"`
	Access    guard.Config                 `envPrefix:"ACCESS_"`
	Media     mediasvc.MediaConfig         `envPrefix:"MEDIA_"`
	Comment   commentsvc.CommentConfig     `envPrefix:"COMMENT_"`
	ImageHTTP imagesvc.HTTPTransportConfig `envPrefix:"IMAGE_HTTP_"`
	Cookies   http_.CookieConfig           `envPrefix:"HTTP_"`
}

// App owns the store handles and the services built on them.
type App struct {
	DB       *database.DB
	Metrics  *metrics.Metrics
	Guard    *guard.Guard
	Auth     *authsvc.AuthService
	Media    *mediasvc.BlobMediaService
	Comments *commentsvc.CommentService
	Cascade  *cascadesvc.Coordinator
	Images   *imagesvc.ImageService

	cfg Config
	log logging.Logger
}

// Open connects to the configured database and builds the App on it.
// The App owns the connection and closes it in Close.
func Open(ctx context.Context, cfg Config) (*App, error) {
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	app, err := New(ctx, cfg, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return app, nil
}

// New builds the App on an open, migrated database.
func New(ctx context.Context, cfg Config, db *database.DB) (_ *App, err error) {
	log := logging.GetLogger("app")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "app init failed", "error", err)
		}
	}()

	m := metrics.New()
	g := guard.New(cfg.Access)
	clk := clock.NewMonotonic()

	credentials, err := authsvc.NewCredentialStore(user.SQLUserRepositoryFactory(db), cfg.Auth, clk)
	if err != nil {
		return nil, fmt.Errorf("new credential store: %w", err)
	}

	sessions, err := authsvc.NewSessionManager(session.SQLSessionRepositoryFactory(db), cfg.Auth, time.Now, m.SessionsPurged)
	if err != nil {
		return nil, fmt.Errorf("new session manager: %w", err)
	}

	blobFactory, err := blob.NewRepositoryFactory(cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("new blob repository factory: %w", err)
	}

	mediaSvc, err := mediasvc.NewBlobMediaService(ctx, blobFactory, cfg.Media, m.ResizeCacheMisses)
	if err != nil {
		return nil, fmt.Errorf("new media service: %w", err)
	}

	commentSvc, err := commentsvc.NewCommentService(comment.SQLCommentRepositoryFactory(db), g, clk, cfg.Comment)
	if err != nil {
		return nil, fmt.Errorf("new comment service: %w", err)
	}

	coordinator, err := cascadesvc.NewCoordinator(image.SQLImageRepositoryFactory(db), mediaSvc, commentSvc, g,
		cascadesvc.Counters{Completed: m.CascadeDeletes, PartialFailure: m.CascadePartialFails})
	if err != nil {
		return nil, fmt.Errorf("new cascade coordinator: %w", err)
	}

	imageSvc, err := imagesvc.NewImageService(image.SQLImageRepositoryFactory(db), mediaSvc, coordinator, g, clk)
	if err != nil {
		return nil, fmt.Errorf("new image service: %w", err)
	}

	log.InfoContext(ctx, "app initialized",
		"db", db.Dialect(),
		"blob", cfg.Blob.Backend,
		"enforceAuth", cfg.Access.EnforceAuth,
	)

	return &App{
		DB:       db,
		Metrics:  m,
		Guard:    g,
		Auth:     authsvc.NewAuthService(credentials, sessions),
		Media:    mediaSvc,
		Comments: commentSvc,
		Cascade:  coordinator,
		Images:   imageSvc,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Handler returns the API router: session resolution, then metrics, then the routes.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	authsvc.NewHTTPTransport(a.Auth, a.cfg.Cookies).RegisterRoutes(mux)
	imagesvc.NewHTTPTransport(a.Images, a.cfg.ImageHTTP).RegisterRoutes(mux)
	commentsvc.NewHTTPTransport(a.Comments).RegisterRoutes(mux)

	mux.Handle("GET /metrics", a.Metrics.Handler())
	mux.HandleFunc("GET /healthz", a.handleHealth)

	handler := http_.MetricsMiddleware(mux, a.Metrics)
	handler = http_.SessionMiddleware(handler, a.Auth.Sessions, logging.GetLogger("app.session"))

	return handler
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.PingContext(r.Context()); err != nil {
		a.log.ErrorContext(r.Context(), "health check failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Run serves the API and purges expired sessions until ctx is cancelled.
func (a *App) Run(ctx context.Context, cfg http_.HTTPTransportConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer close(done)

		a.Auth.Sessions.RunJanitor(ctx, a.cfg.Auth.PurgeInterval)
	}()

	err := http_.ListenAndServe(ctx, a.Handler(), cfg)

	cancel()
	<-done

	if err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Close releases the database.
func (a *App) Close() error {
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}
