package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/kadr/internal/rpc"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	withAuth := func(v string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", v))
	}
	for _, tc := range []struct {
		name   string
		token  string
		method string
		ctx    context.Context
		code   codes.Code
	}{
		{"Disabled", "", rpc.MethodListOptions, context.Background(), codes.OK},
		{"HealthExempt", "secret", rpc.MethodHealth, context.Background(), codes.OK},
		{"MissingMetadata", "secret", rpc.MethodListOptions, context.Background(), codes.Unauthenticated},
		{"MissingHeader", "secret", rpc.MethodCheckIdentity,
			metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "value")), codes.Unauthenticated},
		{"WrongToken", "secret", rpc.MethodCreatePerson, withAuth("Bearer wrong"), codes.Unauthenticated},
		{"InvalidScheme", "secret", rpc.MethodGetPerson, withAuth("Basic secret"), codes.Unauthenticated},
		{"CorrectToken", "secret", rpc.MethodListOptions, withAuth("Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := AuthInterceptor(tc.token)(tc.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.code {
				t.Fatalf("code = %v, want %v (err=%v)", got, tc.code, err)
			}
			if tc.code == codes.OK && resp != "ok" {
				t.Fatalf("expected handler response, got %v", resp)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		header string
		want   int
	}{
		{"Disabled", "", http.MethodGet, "/v1/personnel", "", http.StatusOK},
		{"NoHeader", "secret", http.MethodGet, "/v1/personnel", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodPost, "/v1/identity/check", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", http.MethodGet, "/v1/catalogs/ranks/options", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", http.MethodGet, "/v1/catalogs/ranks/options", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusOK},
		{"HealthExemptOnlyForGet", "secret", http.MethodPost, "/v1/health", "", http.StatusUnauthorized},
		{"StreamRequiresToken", "secret", http.MethodGet, "/v1/events/stream", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCheckBearer(t *testing.T) {
	for _, tc := range []struct {
		header string
		want   string
	}{
		{"", "missing authorization header"},
		{"Basic secret", "invalid authorization scheme"},
		{"Bearer", "invalid authorization scheme"},
		{"Bearer wrong", "invalid token"},
		{"Bearer secret", ""},
	} {
		if got := checkBearer(tc.header, "secret"); got != tc.want {
			t.Errorf("checkBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: rpc.MethodListOptions}
	capture := func(ctx context.Context, _ any) (any, error) {
		return RequestIDFrom(ctx), nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "rq-caller"))
	got, err := RequestIDInterceptor(ctx, nil, info, capture)
	if err != nil || got != "rq-caller" {
		t.Fatalf("expected caller id, got %v (%v)", got, err)
	}

	got, err = RequestIDInterceptor(context.Background(), nil, info, capture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, _ := got.(string); !strings.HasPrefix(id, "rq-") {
		t.Fatalf("expected a minted rq- id, got %v", got)
	}
}

func TestRequestIDMiddleware_Context(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "rq-fixed")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "rq-fixed" || rec.Header().Get("X-Request-ID") != "rq-fixed" {
		t.Fatalf("expected rq-fixed in context and header, got %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}
}
