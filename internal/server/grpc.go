package server

import (
	"context"
	"database/sql"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/kadr/internal/rpc"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// Compile-time check that CatalogServer implements the gRPC service.
var _ rpc.CatalogServiceServer = (*CatalogServer)(nil)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the CatalogService, reflection, and returns the server ready to serve.
func NewGRPCServer(cs *CatalogServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			RequestIDInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	rpc.RegisterCatalogServiceServer(srv, cs)
	reflection.Register(srv)

	return srv
}

// ListOptions returns one page of a catalog.
func (s *CatalogServer) ListOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listOptionsInput
	if err := rpc.Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.listOptions(ctx, in)
	if err != nil {
		return nil, grpcError(err, "catalog")
	}
	return encodeReply(result)
}

// CheckIdentity reports whether a PINFL is already registered.
func (s *CatalogServer) CheckIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in checkIdentityInput
	if err := rpc.Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.checkIdentity(ctx, in)
	if err != nil {
		return nil, grpcError(err, "person")
	}
	return encodeReply(result)
}

// CreatePerson persists a new personnel record.
func (s *CatalogServer) CreatePerson(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createPersonInput
	if err := rpc.Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := s.createPerson(ctx, in)
	if err != nil {
		return nil, grpcError(err, "person")
	}
	return encodeReply(p)
}

// GetPerson retrieves a personnel record by id.
func (s *CatalogServer) GetPerson(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID int64 `json:"id"`
	}
	if err := rpc.Decode(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := s.getPerson(ctx, in.ID)
	if err != nil {
		return nil, grpcError(err, "person")
	}
	return encodeReply(p)
}

// Health reports server liveness.
func (s *CatalogServer) Health(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encodeReply(map[string]string{"status": "ok"})
}

func encodeReply(v any) (*structpb.Struct, error) {
	out, err := rpc.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

// grpcError maps core errors onto gRPC status codes.
func grpcError(err error, entity string) error {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		return status.Error(codes.InvalidArgument, ie.Error())
	case errors.Is(err, sql.ErrNoRows):
		return status.Errorf(codes.NotFound, "%s not found", entity)
	case errors.Is(err, store.ErrDuplicatePINFL):
		return status.Error(codes.AlreadyExists, err.Error())
	}
	return status.Errorf(codes.Internal, "%v", err)
}
