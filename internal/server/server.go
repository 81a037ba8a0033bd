package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// Page size bounds for catalog listings.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogServer serves option catalogs, the PINFL uniqueness check and
// personnel records over HTTP and gRPC.
type CatalogServer struct {
	store     store.Store
	publisher events.Publisher
	hub       *eventHub
}

// NewCatalogServer returns a new CatalogServer backed by the given store and publisher.
func NewCatalogServer(s store.Store, p events.Publisher) *CatalogServer {
	return &CatalogServer{store: s, publisher: p, hub: newEventHub()}
}

// publish sends an event to NATS and to stream subscribers. It is
// best-effort; failures are logged but do not block the caller.
func (s *CatalogServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.broadcastEvent(topic, event)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// listOptionsInput is the transport-independent form of a catalog page request.
type listOptionsInput struct {
	Catalog  string            `json:"catalog"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
}

type listOptionsResult struct {
	Results []model.CatalogItem `json:"results"`
	Total   int                 `json:"total"`
}

// listOptions validates the request and reads one catalog page.
func (s *CatalogServer) listOptions(ctx context.Context, in listOptionsInput) (*listOptionsResult, error) {
	catalog := model.Catalog(in.Catalog)
	if !catalog.IsValid() {
		return nil, inputError(fmt.Sprintf("unknown catalog %q", in.Catalog))
	}

	filter := model.CatalogFilter{
		Search:   strings.TrimSpace(in.Search),
		Page:     in.Page,
		PageSize: in.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	keys := make([]string, 0, len(in.Filters))
	for k := range in.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := in.Filters[k]
		if v == "" {
			continue
		}
		if k != catalog.ParentFilter() {
			return nil, inputError(fmt.Sprintf("catalog %s has no filter %q", catalog, k))
		}
		if _, err := model.ID(v).Int64(); err != nil {
			return nil, inputError(fmt.Sprintf("filter %s: %v", k, err))
		}
		if filter.Filters == nil {
			filter.Filters = make(map[string]string)
		}
		filter.Filters[k] = v
	}

	items, total, err := s.store.ListCatalog(ctx, catalog, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", catalog, err)
	}
	// Ensure results is never null in JSON output.
	if items == nil {
		items = []model.CatalogItem{}
	}
	return &listOptionsResult{Results: items, Total: total}, nil
}

type checkIdentityInput struct {
	Value string `json:"value"`
}

type checkIdentityResult struct {
	Exists          bool          `json:"exists"`
	Message         string        `json:"message,omitempty"`
	MatchedRecordID int64         `json:"matched_record_id,omitempty"`
	MatchedRecord   *model.Person `json:"matched_record,omitempty"`
}

// checkIdentity reports whether a personnel record with the given PINFL exists.
func (s *CatalogServer) checkIdentity(ctx context.Context, in checkIdentityInput) (*checkIdentityResult, error) {
	value := strings.TrimSpace(in.Value)
	if !model.ValidPINFL(value) {
		return nil, inputError(fmt.Sprintf("pinfl must be %d digits", model.PINFLLength))
	}

	p, err := s.store.FindPersonByPINFL(ctx, value)
	if errors.Is(err, sql.ErrNoRows) {
		return &checkIdentityResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check pinfl: %w", err)
	}
	return &checkIdentityResult{
		Exists:          true,
		Message:         "already registered to " + p.FullName(),
		MatchedRecordID: p.ID,
		MatchedRecord:   p,
	}, nil
}

type createPersonInput struct {
	PINFL      string   `json:"pinfl"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	MiddleName string   `json:"middle_name"`
	RankID     model.ID `json:"rank_id"`
	UnitID     model.ID `json:"unit_id"`
	PositionID model.ID `json:"position_id"`
}

// createPerson validates input, persists a new personnel record, and publishes
// a PersonCreated event. Returns inputError for validation failures and
// store.ErrDuplicatePINFL when the PINFL is taken.
func (s *CatalogServer) createPerson(ctx context.Context, in createPersonInput) (*model.Person, error) {
	p := &model.Person{
		PINFL:      strings.TrimSpace(in.PINFL),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		MiddleName: strings.TrimSpace(in.MiddleName),
		RankID:     in.RankID,
		UnitID:     in.UnitID,
		PositionID: in.PositionID,
	}
	if err := model.ValidatePerson(p); err != nil {
		return nil, inputError("invalid person: " + err.Error())
	}

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		_, err := tx.FindPersonByPINFL(ctx, p.PINFL)
		switch {
		case err == nil:
			return store.ErrDuplicatePINFL
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check pinfl: %w", err)
		}
		if err := tx.CreatePerson(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicatePINFL) {
				return err
			}
			return fmt.Errorf("failed to create person: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("person created", "id", p.ID)
	s.publish(ctx, events.TopicPersonCreated, events.PersonCreated{Person: p})
	return p, nil
}

func (s *CatalogServer) getPerson(ctx context.Context, id int64) (*model.Person, error) {
	if id <= 0 {
		return nil, inputError("id must be a positive integer")
	}
	return s.store.GetPerson(ctx, id)
}
