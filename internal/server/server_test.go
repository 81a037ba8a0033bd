package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/rpc"
)

// testCtx creates a fresh CatalogServer with a mock store and background context.
func testCtx(t *testing.T) (*CatalogServer, *mockStore, context.Context) {
	t.Helper()
	srv, ms, _ := newTestServer()
	return srv, ms, context.Background()
}

// requireCode asserts that err is a gRPC error with the given status code.
func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected gRPC error with code %v, got nil", code)
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != code {
		t.Fatalf("expected code=%v, got %v (%s)", code, st.Code(), st.Message())
	}
}

// mustStruct encodes v as a request message.
func mustStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := rpc.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return s
}

func TestGRPCErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method func(*CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error)
		req    map[string]any
		code   codes.Code
	}{
		{"ListOptions/UnknownCatalog", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.ListOptions
		}, map[string]any{"catalog": "vehicles"}, codes.InvalidArgument},
		{"ListOptions/BadFilter", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.ListOptions
		}, map[string]any{"catalog": "units", "filters": map[string]any{"unit_id": "1"}}, codes.InvalidArgument},
		{"ListOptions/WrongType", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.ListOptions
		}, map[string]any{"catalog": "ranks", "page": "one"}, codes.InvalidArgument},
		{"CheckIdentity/Invalid", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.CheckIdentity
		}, map[string]any{"value": "12345"}, codes.InvalidArgument},
		{"CreatePerson/Invalid", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.CreatePerson
		}, map[string]any{"pinfl": testPINFL}, codes.InvalidArgument},
		{"CreatePerson/Duplicate", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.CreatePerson
		}, map[string]any{"pinfl": otherPINFL, "first_name": "A", "last_name": "B", "rank_id": 1, "unit_id": 10}, codes.AlreadyExists},
		{"GetPerson/Zero", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.GetPerson
		}, map[string]any{}, codes.InvalidArgument},
		{"GetPerson/NotFound", func(s *CatalogServer) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return s.GetPerson
		}, map[string]any{"id": 42}, codes.NotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv, ms, ctx := testCtx(t)
			ms.seedPerson(otherPINFL, "Aziz", "Karimov")
			_, err := tc.method(srv)(ctx, mustStruct(t, tc.req))
			requireCode(t, err, tc.code)
		})
	}
}

func TestGRPCErrorMapping(t *testing.T) {
	requireCode(t, grpcError(inputError("bad"), "person"), codes.InvalidArgument)
	requireCode(t, grpcError(fmt.Errorf("wrapped: %w", errors.New("boom")), "person"), codes.Internal)
	if st := status.Convert(grpcError(fmt.Errorf("x: %w", sql.ErrNoRows), "catalog")); st.Message() != "catalog not found" {
		t.Fatalf("unexpected message %q", st.Message())
	}
}

func TestGRPCListOptions(t *testing.T) {
	srv, _, ctx := testCtx(t)
	resp, err := srv.ListOptions(ctx, mustStruct(t, map[string]any{
		"catalog":   "units",
		"page":      1,
		"page_size": 10,
		"search":    "inf",
		"filters":   map[string]any{"department_id": "3"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out listOptionsResult
	if err := rpc.Decode(resp, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 1 || len(out.Results) != 1 || out.Results[0].ID != "10" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestGRPCCreateAndGetPerson(t *testing.T) {
	srv, _, ctx := testCtx(t)
	sub, _ := srv.hub.subscribe([]string{events.TopicPersonCreated}, 0)
	defer srv.hub.unsubscribe(sub)

	resp, err := srv.CreatePerson(ctx, mustStruct(t, map[string]any{
		"pinfl":      testPINFL,
		"first_name": "Aziz",
		"last_name":  "Karimov",
		"rank_id":    2,
		"unit_id":    10,
	}))
	if err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}
	var created model.Person
	if err := rpc.Decode(resp, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.RankID != "2" {
		t.Fatalf("unexpected person: %+v", created)
	}

	select {
	case evt := <-sub.ch:
		if evt.Topic != events.TopicPersonCreated {
			t.Fatalf("unexpected topic %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a person created event")
	}

	resp, err = srv.GetPerson(ctx, mustStruct(t, map[string]any{"id": created.ID}))
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	var got model.Person
	if err := rpc.Decode(resp, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PINFL != testPINFL {
		t.Fatalf("unexpected person: %+v", got)
	}
}

func TestGRPCHealth(t *testing.T) {
	srv, _, ctx := testCtx(t)
	resp, err := srv.Health(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fields["status"].GetStringValue() != "ok" {
		t.Fatalf("got %v", resp)
	}
}

// TestGRPCRoundTrip drives the registered service through the real client
// over an in-memory connection, including the auth interceptor.
func TestGRPCRoundTrip(t *testing.T) {
	cs, ms, _ := newTestServer()
	ms.seedPerson(testPINFL, "Aziz", "Karimov")

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(cs, "secret")
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dial := func(creds client.CredentialProvider) *client.GRPCClient {
		c, err := client.NewGRPCClient("passthrough:///bufnet", creds,
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			t.Fatalf("NewGRPCClient: %v", err)
		}
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	ctx := context.Background()

	anon := dial(nil)
	if got, err := anon.Health(ctx); err != nil || got != "ok" {
		t.Fatalf("Health() = %q, %v", got, err)
	}
	_, err := anon.ListOptions(ctx, &client.ListOptionsRequest{Catalog: model.CatalogRanks})
	requireCode(t, err, codes.Unauthenticated)

	c := dial(client.StaticToken("secret"))
	page, err := c.ListOptions(ctx, &client.ListOptionsRequest{Catalog: model.CatalogRanks, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListOptions: %v", err)
	}
	if page.Total != 3 || len(page.Results) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}

	check, err := c.CheckIdentity(ctx, &client.CheckIdentityRequest{Value: testPINFL})
	if err != nil {
		t.Fatalf("CheckIdentity: %v", err)
	}
	if !check.Exists || check.MatchedRecordID != 1 {
		t.Fatalf("unexpected verdict: %+v", check)
	}
}

func TestLoggingInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: rpc.MethodListOptions}

	resp, err := LoggingInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return "ok", nil })
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=%q err=nil, got resp=%v err=%v", "ok", resp, err)
	}

	_, err = LoggingInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return nil, fmt.Errorf("boom") })
	if err == nil {
		t.Fatal("expected error")
	}

	_, err = LoggingInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.InvalidArgument, "bad")
		})
	requireCode(t, err, codes.InvalidArgument)
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: rpc.MethodGetPerson}

	resp, err := RecoveryInterceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return "ok", nil })
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=%q err=nil, got resp=%v err=%v", "ok", resp, err)
	}

	_, err = RecoveryInterceptor(context.Background(), nil, info,
		func(_ context.Context, _ any) (any, error) { panic("test panic") })
	requireCode(t, err, codes.Internal)
}
