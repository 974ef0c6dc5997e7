package imagesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/mkrupp/webgallery/internal/domain"
	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	http_ "github.com/mkrupp/webgallery/internal/infra/transport/http"
)

// multipartOverhead is allowed on top of the maximum file size for the other form fields.
const multipartOverhead = 1 << 20

// HTTPTransport handles HTTP requests for the image service.
type HTTPTransport struct {
	imageSvc *ImageService
	log      logging.Logger
	cfg      HTTPTransportConfig
	mux      *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(imageSvc *ImageService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		imageSvc: imageSvc,
		log:      logging.GetLogger("svc.imagesvc.http_transport"),
		cfg:      cfg,
		mux:      http.NewServeMux(),
	}

	ht.RegisterRoutes(ht.mux)

	return ht
}

// RegisterRoutes mounts the image endpoints:
//   - POST /api/images: upload an image
//   - GET /api/images[?author=X]: list images
//   - GET /api/images/{id}: image metadata
//   - GET /api/images/{id}/image[?width=N]: image content
//   - DELETE /api/images/{id}: delete an image with its comments
func (ht *HTTPTransport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/images", ht.HandleUpload)
	mux.HandleFunc("GET /api/images", ht.HandleList)
	mux.HandleFunc("GET /api/images/{id}", ht.HandleGet)
	mux.HandleFunc("GET /api/images/{id}/image", ht.HandleDownload)
	mux.HandleFunc("DELETE /api/images/{id}", ht.HandleDelete)
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleUpload processes image upload requests.
// Expects a multipart form with title, author and a file field matching MultipartFileName.
func (ht *HTTPTransport) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpload(w, r)
}

func (ht *HTTPTransport) handleUpload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "image upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "image uploaded")
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())

	// The body is not read for a requester that may not upload.
	if err := ht.imageSvc.AuthorizeUpload(identity); err != nil {
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, ht.imageSvc.MaxSize()+multipartOverhead)

	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: %w", domain.ErrImageTooLarge, err)
		}

		return fmt.Errorf("%w: parse multipart form: %w", domain.ErrValidation, err)
	}

	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(ht.cfg.MultipartFileName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return domain.ErrNoBlob
		}

		return fmt.Errorf("%w: form file: %w", domain.ErrValidation, err)
	}
	defer file.Close()

	log = log.With(logging.Group("upload", "filename", header.Filename, "size", header.Size))

	// Check upload constraints before reading the image to buffer
	if err := ht.imageSvc.CheckUploadConstraints(header.Filename, header.Size); err != nil {
		return err
	}

	data, err := readFile(file)
	if err != nil {
		return err
	}

	created, err := ht.imageSvc.Create(r.Context(), identity, Upload{
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusCreated, created); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

func readFile(file multipart.File) ([]byte, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", domain.ErrValidation, err)
	}

	return data, nil
}

// HandleList lists images, optionally restricted to one author.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			ht.log.WarnContext(ctx, "image list failed", "error", err)
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())
	filter := domain.ImageFilter{Author: r.URL.Query().Get("author")}

	images, err := ht.imageSvc.List(r.Context(), identity, filter)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, images); err != nil {
		ht.log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

// HandleGet returns the metadata of one image.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			ht.log.WarnContext(ctx, "image get failed", "error", err)
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())

	found, err := ht.imageSvc.Get(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, found); err != nil {
		ht.log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}

// HandleDownload serves image content.
// Accepts an optional width parameter for resizing and a download parameter for attachments.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDownload(w, r)
}

func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "image download failed", "error", err)
		} else {
			log.DebugContext(ctx, "image downloaded")
		}
	}(r.Context())

	var width int

	if widthStr := r.URL.Query().Get(ht.cfg.URLWidthParam); widthStr != "" {
		width, err = strconv.Atoi(widthStr)
		if err != nil {
			return fmt.Errorf("%w: %q", domain.ErrInvalidWidth, widthStr)
		}
	}

	identity, _ := context_.IdentityFromContext(r.Context())
	id := r.PathValue("id")

	content, err := ht.imageSvc.Content(r.Context(), identity, id, width)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}

	if _, ok := r.URL.Query()[ht.cfg.URLFileDownloadParam]; ok {
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(id))
	}

	w.Header().Set("Content-Type", content.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content.Data); err != nil {
		log.WarnContext(r.Context(), "write content failed", "error", err)
	}

	return nil
}

// HandleDelete deletes an image with its content and comments.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			http_.WriteError(w, err)
			log.WarnContext(ctx, "image delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "image deleted")
		}
	}(r.Context())

	identity, _ := context_.IdentityFromContext(r.Context())

	deleted, err := ht.imageSvc.Delete(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, deleted); err != nil {
		log.WarnContext(r.Context(), "encode response failed", "error", err)
	}

	return nil
}
