package services_test

import (
	"context"
	"testing"

	"tubefetch/internal/services"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithJobKind(ctx, "video")
	ctx = services.WithClientID(ctx, "client-9")
	ctx = services.WithRequestID(ctx, "req-3")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-1" {
		t.Fatalf("job id = %q (%v)", id, ok)
	}
	if kind, ok := services.JobKindFromContext(ctx); !ok || kind != "video" {
		t.Fatalf("job kind = %q (%v)", kind, ok)
	}
	if id, ok := services.ClientIDFromContext(ctx); !ok || id != "client-9" {
		t.Fatalf("client id = %q (%v)", id, ok)
	}
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-3" {
		t.Fatalf("request id = %q (%v)", id, ok)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected empty job id to be ignored")
	}
	if _, ok := services.ClientIDFromContext(context.Background()); ok {
		t.Fatal("expected no client id on bare context")
	}
}
