// Package rpc defines the kadr.v1.CatalogService gRPC service. Messages are
// google.protobuf.Struct values carrying the same JSON documents the HTTP API
// serves, so the service needs no generated stubs.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kadr.v1.CatalogService"

// Full method names, as seen by interceptors.
const (
	MethodListOptions   = "/" + ServiceName + "/ListOptions"
	MethodCheckIdentity = "/" + ServiceName + "/CheckIdentity"
	MethodCreatePerson  = "/" + ServiceName + "/CreatePerson"
	MethodGetPerson     = "/" + ServiceName + "/GetPerson"
	MethodHealth        = "/" + ServiceName + "/Health"
)

// CatalogServiceServer is the server API for CatalogService.
type CatalogServiceServer interface {
	ListOptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckIdentity(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreatePerson(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPerson(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterCatalogServiceServer registers srv with the gRPC registrar.
func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type unaryMethod func(CatalogServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListOptions", Handler: handler(MethodListOptions, CatalogServiceServer.ListOptions)},
		{MethodName: "CheckIdentity", Handler: handler(MethodCheckIdentity, CatalogServiceServer.CheckIdentity)},
		{MethodName: "CreatePerson", Handler: handler(MethodCreatePerson, CatalogServiceServer.CreatePerson)},
		{MethodName: "GetPerson", Handler: handler(MethodGetPerson, CatalogServiceServer.GetPerson)},
		{MethodName: "Health", Handler: handler(MethodHealth, CatalogServiceServer.Health)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kadr/v1/catalog.proto",
}

// Invoke calls a CatalogService method on conn, encoding in and decoding the
// reply into out. out may be nil.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, in, out any) error {
	req, err := Encode(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(resp, out)
}

// Encode converts a JSON-serialisable value to a Struct.
func Encode(v any) (*structpb.Struct, error) {
	s := new(structpb.Struct)
	if v == nil {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling message: %w", err)
	}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encoding struct: %w", err)
	}
	return s, nil
}

// Decode fills v from the JSON form of s.
func Decode(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling message: %w", err)
	}
	return nil
}
