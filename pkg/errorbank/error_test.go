package errorbank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindMappings(t *testing.T) {
	tests := []struct {
		err  *AppError
		http int
		grpc codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("race"), http.StatusConflict, codes.Aborted},
		{NotFound("gone"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Unavailable("later"), http.StatusServiceUnavailable, codes.Unavailable},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range tests {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			if got := tc.err.StatusCode(); got != tc.http {
				t.Fatalf("http: want %d, got %d", tc.http, got)
			}
			if got := tc.err.GRPCCode(); got != tc.grpc {
				t.Fatalf("grpc: want %s, got %s", tc.grpc, got)
			}
		})
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk full")
	appErr := From(cause)
	if appErr.Kind() != KindInternal {
		t.Fatalf("expected internal kind, got %s", appErr.Kind())
	}
	if !errors.Is(appErr, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if From(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestFromFindsWrappedAppError(t *testing.T) {
	inner := NotFound("order not found", WithDetail("order_id", "42"))
	wrapped := fmt.Errorf("handler: %w", inner)

	if got := From(wrapped); got != inner {
		t.Fatalf("expected the wrapped AppError, got %v", got)
	}
	if !IsKind(wrapped, KindNotFound) || IsKind(wrapped, KindConflict) {
		t.Fatal("IsKind mismatch")
	}
	if inner.Details()["order_id"] != "42" {
		t.Fatalf("unexpected details: %v", inner.Details())
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Unavailable("store timeout", WithCause(context.DeadlineExceeded))
	if err.Error() != "store timeout: context deadline exceeded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if New(KindConflict, "").Message() != "conflict" {
		t.Fatal("expected empty message to fall back to kind")
	}
}

func TestGRPCStatus(t *testing.T) {
	st, ok := status.FromError(Conflict("order was modified concurrently"))
	if !ok {
		t.Fatal("expected a gRPC status")
	}
	if st.Code() != codes.Aborted || st.Message() != "order was modified concurrently" {
		t.Fatalf("unexpected status %v", st)
	}
}

func TestWithDetailsMerges(t *testing.T) {
	err := BadRequest("validation failed",
		WithDetail("day", "required"),
		WithDetails(map[string]any{"mode": "oneof"}),
		WithDetails(nil),
	)
	if len(err.Details()) != 2 {
		t.Fatalf("expected two details, got %v", err.Details())
	}
}

func TestUnknownKindFallsBackToInternal(t *testing.T) {
	err := New(Kind("teapot"), "short and stout")
	if err.StatusCode() != http.StatusInternalServerError || err.GRPCCode() != codes.Internal {
		t.Fatalf("unexpected mapping %d/%s", err.StatusCode(), err.GRPCCode())
	}
	var nilErr *AppError
	if nilErr.StatusCode() != http.StatusInternalServerError {
		t.Fatal("nil error maps to internal")
	}
}
