package context_test

import (
	"context"
	"testing"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
)

func TestIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := context_.IdentityFromContext(ctx); ok {
		t.Fatal("empty context must be anonymous")
	}

	if _, ok := context_.IdentityFromContext(context_.WithIdentity(ctx, "")); ok {
		t.Fatal("empty identity must be anonymous")
	}

	got, ok := context_.IdentityFromContext(context_.WithIdentity(ctx, "alice"))
	if !ok || got != "alice" {
		t.Errorf("IdentityFromContext() = %q, %v", got, ok)
	}
}

func TestValuesDoNotCollide(t *testing.T) {
	t.Parallel()

	ctx := context_.WithTraceID(context.Background(), "trace")
	ctx = context_.WithSessionToken(ctx, "token")
	ctx = context_.WithIdentity(ctx, "bob")

	if v, _ := context_.TraceIDFromContext(ctx); v != "trace" {
		t.Errorf("trace id = %q", v)
	}

	if v, _ := context_.SessionTokenFromContext(ctx); v != "token" {
		t.Errorf("session token = %q", v)
	}

	if v, _ := context_.IdentityFromContext(ctx); v != "bob" {
		t.Errorf("identity = %q", v)
	}
}
