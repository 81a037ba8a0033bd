package client

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCClient implements CatalogClient using the gRPC transport.
type GRPCClient struct {
	conn grpc.ClientConnInterface
	// closer is nil when the connection is owned by the caller.
	closer interface{ Close() error }
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// Extra dial options are appended after the defaults.
func NewGRPCClient(addr string, creds CredentialProvider, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if creds != nil {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearerCredentials{creds}))
	}
	dialOpts = append(dialOpts, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn, closer: conn}, nil
}

// NewGRPCClientFromConn wraps an existing connection. Close does not close it.
func NewGRPCClientFromConn(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// --- Catalogs ---

func (c *GRPCClient) ListOptions(ctx context.Context, req *ListOptionsRequest) (*ListOptionsResponse, error) {
	var resp ListOptionsResponse
	if err := rpc.Invoke(ctx, c.conn, rpc.MethodListOptions, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Identity ---

func (c *GRPCClient) CheckIdentity(ctx context.Context, req *CheckIdentityRequest) (*CheckIdentityResponse, error) {
	var resp CheckIdentityResponse
	if err := rpc.Invoke(ctx, c.conn, rpc.MethodCheckIdentity, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Personnel ---

func (c *GRPCClient) CreatePerson(ctx context.Context, req *CreatePersonRequest) (*model.Person, error) {
	var p model.Person
	if err := rpc.Invoke(ctx, c.conn, rpc.MethodCreatePerson, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *GRPCClient) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	var p model.Person
	if err := rpc.Invoke(ctx, c.conn, rpc.MethodGetPerson, map[string]int64{"id": id}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := rpc.Invoke(ctx, c.conn, rpc.MethodHealth, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// bearerCredentials attaches the provider's token as "authorization" metadata.
type bearerCredentials struct {
	creds CredentialProvider
}

func (b bearerCredentials) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	token, err := b.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (bearerCredentials) RequireTransportSecurity() bool { return false }
