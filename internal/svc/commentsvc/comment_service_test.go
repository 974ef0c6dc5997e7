package commentsvc_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database/dbtest"
	"github.com/mkrupp/webgallery/internal/repo/comment"
	"github.com/mkrupp/webgallery/internal/svc/commentsvc"
	"github.com/mkrupp/webgallery/internal/svc/guard"
	"github.com/mkrupp/webgallery/internal/util/clock"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

func newCommentService(t *testing.T, enforce bool) *commentsvc.CommentService {
	t.Helper()

	svc, err := commentsvc.NewCommentService(
		comment.SQLCommentRepositoryFactory(dbtest.Open(t)),
		guard.New(guard.Config{EnforceAuth: enforce}),
		clock.NewMonotonic(),
		commentsvc.CommentConfig{PageSize: 10, MaxContentLength: 64, AnonymousAuthor: "anonymous"},
	)
	require.NoError(t, err)

	return svc
}

func newImageID(t *testing.T) string {
	t.Helper()

	id, err := ids.New()
	require.NoError(t, err)

	return id
}

func TestParsePage(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":     0,
		"0":    0,
		"3":    3,
		" 2 ":  2,
		"-1":   0,
		"abc":  0,
		"1.5":  0,
		"1e3":  0,
		"9999": 9999,

		"99999999999999999999":  math.MaxInt,
		"+99999999999999999999": math.MaxInt,
		"-99999999999999999999": 0,
		"922337203685477581":    922337203685477581,
	}

	for input, want := range tests {
		assert.Equal(t, want, commentsvc.ParsePage(input), "ParsePage(%q)", input)
	}
}

func TestCommentService_Create(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, true)
	ctx := context.Background()
	imageID := newImageID(t)

	created, err := svc.Create(ctx, "bob", imageID, "mallory", "nice shot")
	require.NoError(t, err)
	assert.Equal(t, "bob", created.Author, "the session identity is the author")
	assert.Equal(t, imageID, created.ImageID)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(ctx, "bob", imageID, "", "   ")
	require.ErrorIs(t, err, domain.ErrNoContent)

	_, err = svc.Create(ctx, "bob", imageID, "", strings.Repeat("x", 65))
	require.ErrorIs(t, err, commentsvc.ErrContentTooLong)

	_, err = svc.Create(ctx, "", imageID, "bob", "hi")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Create(ctx, "bob", "!!", "", "hi")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCommentService_CreateOnMissingImage(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, true)

	_, err := svc.Create(context.Background(), "bob", newImageID(t), "", "orphan")
	assert.NoError(t, err)
}

func TestCommentService_CreateWithoutEnforcement(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, false)
	ctx := context.Background()
	imageID := newImageID(t)

	named, err := svc.Create(ctx, "", imageID, "carol", "hello")
	require.NoError(t, err)
	assert.Equal(t, "carol", named.Author)

	anonymous, err := svc.Create(ctx, "", imageID, "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", anonymous.Author)
}

func TestCommentService_ListPagination(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, true)
	ctx := context.Background()
	imageID := newImageID(t)

	var created []string

	for i := range 23 {
		c, err := svc.Create(ctx, "alice", imageID, "", "comment "+string(rune('a'+i)))
		require.NoError(t, err)

		created = append(created, c.ID)
	}

	var seen []string

	for page, want := range []int{10, 10, 3, 0} {
		comments, err := svc.List(ctx, "bob", imageID, page)
		require.NoError(t, err)
		require.Len(t, comments, want, "page %d", page)

		for i := 1; i < len(comments); i++ {
			assert.False(t, comments[i].CreatedAt.After(comments[i-1].CreatedAt), "newest first")
		}

		for _, c := range comments {
			seen = append(seen, c.ID)
		}
	}

	assert.Len(t, seen, len(created))
	assert.Equal(t, created[len(created)-1], seen[0])
	assert.ElementsMatch(t, created, seen, "pages are disjoint and complete")

	for _, input := range []string{"922337203685477581", "99999999999999999999"} {
		comments, err := svc.List(ctx, "bob", imageID, commentsvc.ParsePage(input))
		require.NoError(t, err)
		assert.Empty(t, comments, "page %s is past the end", input)
	}

	comments, err := svc.List(ctx, "bob", "not-an-id!", 0)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = svc.List(ctx, "", imageID, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCommentService_Delete(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, true)
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", newImageID(t), "", "mine")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "bob", created.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Delete(ctx, "", created.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	deleted, err := svc.Delete(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.Delete(ctx, "alice", created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommentService_DeleteWithoutEnforcement(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, "", newImageID(t), "alice", "mine")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "", created.ID)
	assert.NoError(t, err)
}

func TestCommentService_DeleteAllForImage(t *testing.T) {
	t.Parallel()

	svc := newCommentService(t, true)
	ctx := context.Background()
	imageID, otherID := newImageID(t), newImageID(t)

	for _, id := range []string{imageID, imageID, otherID} {
		_, err := svc.Create(ctx, "alice", id, "", "x")
		require.NoError(t, err)
	}

	n, err := svc.DeleteAllForImage(ctx, imageID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.DeleteAllForImage(ctx, imageID)
	require.NoError(t, err)
	assert.Zero(t, n)

	remaining, err := svc.List(ctx, "alice", otherID, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
