package reqctx_test

import (
	"context"
	"testing"

	"github.com/ErlanBelekov/user-auth/internal/reqctx"
	"github.com/google/uuid"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := reqctx.WithRequestID(context.Background(), "req-1")
	if got := reqctx.RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID = %q, want req-1", got)
	}
	if got := reqctx.RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on empty ctx = %q, want empty", got)
	}
}

func TestUserID_IndependentOfRequestID(t *testing.T) {
	ctx := reqctx.WithUserID(reqctx.WithRequestID(context.Background(), "req-1"), "user-1")
	if reqctx.UserID(ctx) != "user-1" || reqctx.RequestID(ctx) != "req-1" {
		t.Errorf("got user=%q request=%q", reqctx.UserID(ctx), reqctx.RequestID(ctx))
	}
}

func TestNewRequestID_IsUUID(t *testing.T) {
	if _, err := uuid.Parse(reqctx.NewRequestID()); err != nil {
		t.Errorf("not a uuid: %v", err)
	}
}
