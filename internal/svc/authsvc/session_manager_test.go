package authsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/domain"
	"github.com/mkrupp/webgallery/internal/infra/database/dbtest"
	"github.com/mkrupp/webgallery/internal/repo/session"
	"github.com/mkrupp/webgallery/internal/repo/user"
	"github.com/mkrupp/webgallery/internal/svc/authsvc"
	"github.com/mkrupp/webgallery/internal/util/clock"
)

func TestSessionManager_RoundTrip(t *testing.T) {
	t.Parallel()

	fx := newSQLFixture(t, testConfig())
	ctx := context.Background()

	_, sess, err := fx.auth.Signup(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Len(t, sess.Token, 52)

	username, ok, err := fx.auth.Sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	require.NoError(t, fx.auth.Signout(ctx, sess.Token))

	_, ok, err = fx.auth.Sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fx.auth.Sessions.Destroy(ctx, sess.Token), "destroy is idempotent")
}

func TestSessionManager_UnknownTokens(t *testing.T) {
	t.Parallel()

	fx := newSQLFixture(t, testConfig())
	ctx := context.Background()

	for _, token := range []string{"", "forged", "alice"} {
		username, ok, err := fx.auth.Sessions.Resolve(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok, token)
		assert.Empty(t, username)
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SessionDuration = time.Hour

	fx := newSQLFixture(t, cfg)
	ctx := context.Background()

	_, sess, err := fx.auth.Signup(ctx, "bob", "pw")
	require.NoError(t, err)

	fx.clock.Advance(59 * time.Minute)

	_, ok, err := fx.auth.Sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	fx.clock.Advance(time.Minute)

	_, ok, err = fx.auth.Sessions.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.False(t, ok, "fixed expiry is not extended by use")

	n, err := fx.auth.Sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSessionManager_SlidingExpiry(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SessionDuration = time.Hour
	cfg.SessionSliding = true

	fx := newSQLFixture(t, cfg)
	ctx := context.Background()

	_, sess, err := fx.auth.Signup(ctx, "carol", "pw")
	require.NoError(t, err)

	for range 3 {
		fx.clock.Advance(50 * time.Minute)

		_, ok, err := fx.auth.Sessions.Resolve(ctx, sess.Token)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestAuthService_Signin(t *testing.T) {
	t.Parallel()

	fx := newSQLFixture(t, testConfig())
	ctx := context.Background()

	_, first, err := fx.auth.Signup(ctx, "alice", "pw")
	require.NoError(t, err)

	_, second, err := fx.auth.Signin(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, _, err = fx.auth.Signin(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = fx.auth.Signup(ctx, "alice", "again")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	assert.ErrorIs(t, fx.auth.Signout(ctx, ""), domain.ErrUnauthorized)

	users, err := fx.auth.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestSessionManager_RunJanitor(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SessionDuration = time.Minute

	db := dbtest.Open(t)
	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	purged := prometheus.NewCounter(prometheus.CounterOpts{Name: "purged"})

	credentials, err := authsvc.NewCredentialStore(user.SQLUserRepositoryFactory(db), cfg, clock.NewMonotonic())
	require.NoError(t, err)

	sessions, err := authsvc.NewSessionManager(session.SQLSessionRepositoryFactory(db), cfg, clk.Now, purged)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = credentials.Signup(ctx, "carol", "pw")
	require.NoError(t, err)

	_, err = sessions.Create(ctx, "carol")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)

	done := make(chan struct{})

	go func() {
		defer close(done)
		sessions.RunJanitor(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(purged) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
