package comment_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database/dbtest"
	"github.com/mkrupp/webgallery/internal/repo/comment"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo comment.Repository, imageID string, n int) []string {
	t.Helper()

	ids := make([]string, 0, n)

	for i := range n {
		id := fmt.Sprintf("%s-c%02d", imageID, i)
		require.NoError(t, repo.CreateComment(context.Background(), domain.Comment{
			ID:        id,
			ImageID:   imageID,
			Author:    "alice",
			Content:   "comment " + id,
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
		}))

		ids = append(ids, id)
	}

	return ids
}

func commentIDs(comments []domain.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}

	return out
}

func TestSQLCommentRepository_Pagination(t *testing.T) {
	t.Parallel()

	repo := comment.NewSQLCommentRepository(dbtest.Open(t))
	ctx := context.Background()

	ids := seed(t, repo, "img1", 25)
	seed(t, repo, "img2", 3)

	page0, err := repo.ListComments(ctx, "img1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[24], ids[23], ids[22], ids[21], ids[20], ids[19], ids[18], ids[17], ids[16], ids[15]},
		commentIDs(page0))

	page2, err := repo.ListComments(ctx, "img1", 20, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[4], ids[3], ids[2], ids[1], ids[0]}, commentIDs(page2))

	page3, err := repo.ListComments(ctx, "img1", 30, 10)
	require.NoError(t, err)
	assert.NotNil(t, page3)
	assert.Empty(t, page3)
}

func TestSQLCommentRepository_GetAndDelete(t *testing.T) {
	t.Parallel()

	repo := comment.NewSQLCommentRepository(dbtest.Open(t))
	ctx := context.Background()

	ids := seed(t, repo, "img1", 2)

	got, err := repo.GetComment(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "img1", got.ImageID)
	assert.True(t, got.CreatedAt.Equal(t0))

	require.NoError(t, repo.DeleteComment(ctx, ids[0]))
	assert.ErrorIs(t, repo.DeleteComment(ctx, ids[0]), domain.ErrCommentNotFound)

	_, err = repo.GetComment(ctx, ids[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLCommentRepository_DeleteCommentsForImage(t *testing.T) {
	t.Parallel()

	repo := comment.NewSQLCommentRepository(dbtest.Open(t))
	ctx := context.Background()

	seed(t, repo, "img1", 12)
	seed(t, repo, "img2", 2)

	n, err := repo.DeleteCommentsForImage(ctx, "img1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = repo.DeleteCommentsForImage(ctx, "img1")
	require.NoError(t, err)
	assert.Zero(t, n)

	rest, err := repo.ListComments(ctx, "img2", 0, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
