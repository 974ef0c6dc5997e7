package commentsvc

import (
	"context"
	"fmt"
	"net/http"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	http_ "github.com/mkrupp/webgallery/internal/infra/transport/http"
)

// HTTPTransport handles HTTP requests for the comment service.
type HTTPTransport struct {
	commentSvc *CommentService
	log        logging.Logger
	mux        *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance.
func NewHTTPTransport(commentSvc *CommentService) *HTTPTransport {
	ht := &HTTPTransport{
		commentSvc: commentSvc,
		log:        logging.GetLogger("svc.commentsvc.http_transport"),
		mux:        http.NewServeMux(),
	}

	ht.RegisterRoutes(ht.mux)

	return ht
}

// RegisterRoutes mounts the comment endpoints:
//   - POST /api/images/{id}/comments: add a comment
//   - GET /api/images/{id}/comments?page=N: one page of comments
//   - DELETE /api/comments/{id}: delete a comment
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/images/{id}/comments", ht.HandleCreate)
	mux.HandleFunc("GET /api/images/{id}/comments", ht.HandleList)
	mux.HandleFunc("DELETE /api/comments/{id}", ht.HandleDelete)
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleCreate adds a comment. Expects content and, without enforcement, author as JSON or form fields.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "comment create failed", "error", err)
		}
	}(r.Context())

	values, err := http_.ReadValues(w, r)
	if err != nil {
		return err
	}

	identity, _ := context_.IdentityFromContext(r.Context())

	created, err := ht.commentSvc.Create(r.Context(), identity,
		r.PathValue("id"), values.Get("author"), values.Get("content"))
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusCreated, created); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

// HandleList returns one page of comments of an image.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "comment list failed", "error", err)
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())
	page := ParsePage(r.URL.Query().Get("page"))

	comments, err := ht.commentSvc.List(r.Context(), identity, r.PathValue("id"), page)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, comments); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

// HandleDelete deletes a comment and returns it.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "comment delete failed", "error", err)
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())

	deleted, err := ht.commentSvc.Delete(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, deleted); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}
