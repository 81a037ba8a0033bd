// Package client provides a transport-agnostic interface for the kadr catalog
// service, with HTTP/JSON and gRPC implementations.
package client

import (
	"context"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// CatalogClient is the interface the picker core and the kadr CLI use to talk
// to the catalog service. It is implemented by HTTPClient (default) and
// GRPCClient.
type CatalogClient interface {
	// Catalogs
	ListOptions(ctx context.Context, req *ListOptionsRequest) (*ListOptionsResponse, error)

	// Identity
	CheckIdentity(ctx context.Context, req *CheckIdentityRequest) (*CheckIdentityResponse, error)

	// Personnel
	CreatePerson(ctx context.Context, req *CreatePersonRequest) (*model.Person, error)
	GetPerson(ctx context.Context, id int64) (*model.Person, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// ListOptionsRequest holds parameters for fetching one page of a catalog.
type ListOptionsRequest struct {
	Catalog  model.Catalog     `json:"catalog"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Search   string            `json:"search,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// ListOptionsResponse is one page of raw catalog rows.
type ListOptionsResponse struct {
	Results []model.CatalogItem `json:"results"`
	Total   int                 `json:"total"`
}

// CheckIdentityRequest asks whether a personal identifier is already on record.
type CheckIdentityRequest struct {
	Value string `json:"value"`
}

// CheckIdentityResponse is the verdict of an identity check.
type CheckIdentityResponse struct {
	Exists          bool          `json:"exists"`
	Message         string        `json:"message,omitempty"`
	MatchedRecordID int64         `json:"matched_record_id,omitempty"`
	MatchedRecord   *model.Person `json:"matched_record,omitempty"`
}

// CreatePersonRequest holds the fields of a new personnel record.
type CreatePersonRequest struct {
	PINFL      string   `json:"pinfl"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	MiddleName string   `json:"middle_name,omitempty"`
	RankID     model.ID `json:"rank_id,omitempty"`
	UnitID     model.ID `json:"unit_id,omitempty"`
	PositionID model.ID `json:"position_id,omitempty"`
}

// CredentialProvider supplies the bearer token sent with each request.
// An empty token means the request is sent unauthenticated.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a CredentialProvider that always returns the same token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// CredentialFunc adapts a function to a CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f CredentialFunc) Token(ctx context.Context) (string, error) { return f(ctx) }
