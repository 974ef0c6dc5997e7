package commentsvc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/domain"
	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/svc/commentsvc"
)

func serve(h http.Handler, method, target, identity, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if identity != "" {
		req = req.WithContext(context_.WithIdentity(req.Context(), identity))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHTTPTransport_Comments(t *testing.T) {
	t.Parallel()

	h := commentsvc.NewHTTPTransport(newCommentService(t, true))
	imageID := newImageID(t)
	path := "/api/images/" + imageID + "/comments"

	rec := serve(h, http.MethodPost, path, "alice", `{"content":"first"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Author)
	assert.Equal(t, imageID, created.ImageID)

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, path, "", `{"content":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodPost, path, "alice", `{"content":""}`).Code)

	rec = serve(h, http.MethodGet, path+"?page=-4", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page []domain.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 1)

	rec = serve(h, http.MethodGet, path+"?page=7", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodDelete, "/api/comments/"+created.ID, "bob", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodDelete, "/api/comments/"+created.ID, "alice", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodDelete, "/api/comments/"+created.ID, "alice", "").Code)
}

func TestHTTPTransport_CommentForm(t *testing.T) {
	t.Parallel()

	h := commentsvc.NewHTTPTransport(newCommentService(t, false))
	form := url.Values{"author": {"carol"}, "content": {"via form"}}

	req := httptest.NewRequest(http.MethodPost, "/api/images/"+newImageID(t)+"/comments",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"author":"carol"`)
}
