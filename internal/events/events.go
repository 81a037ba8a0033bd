package events

import (
	"context"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// Event topic constants
const (
	// Picker events (emitted by forms on the client side).
	TopicPickerResolved    = "kadr.picker.resolved"
	TopicPickerExhausted   = "kadr.picker.exhausted"
	TopicPickerFetchFailed = "kadr.picker.fetch_failed"

	// Identity events.
	TopicIdentityChecked = "kadr.identity.checked"

	// Personnel events (emitted by the server).
	TopicPersonCreated = "kadr.person.created"

	// Backup events.
	TopicBackupCompleted = "kadr.backup.completed"
)

// TopicAll matches every kadr topic.
const TopicAll = "kadr.>"

// Event types

// PickerResolved is emitted when a label-only selection is matched to a catalog entry.
type PickerResolved struct {
	FormID  string        `json:"form_id"`
	Field   string        `json:"field"`
	Catalog model.Catalog `json:"catalog"`
	Label   string        `json:"label"`
	Option  model.Option  `json:"option"`
	Pages   int           `json:"pages"`
}

// PickerExhausted is emitted when a label-only selection could not be matched.
type PickerExhausted struct {
	FormID  string        `json:"form_id"`
	Field   string        `json:"field"`
	Catalog model.Catalog `json:"catalog"`
	Label   string        `json:"label"`
	Pages   int           `json:"pages"`
}

type PickerFetchFailed struct {
	FormID  string        `json:"form_id"`
	Field   string        `json:"field"`
	Catalog model.Catalog `json:"catalog"`
	Page    int           `json:"page"`
	Error   string        `json:"error"`
}

// IdentityChecked carries the verdict of one identity check. The value itself
// is not included.
type IdentityChecked struct {
	FormID  string `json:"form_id,omitempty"`
	Exists  bool   `json:"exists"`
	Error   string `json:"error,omitempty"`
	Matched int64  `json:"matched_record_id,omitempty"`
}

type PersonCreated struct {
	Person *model.Person `json:"person"`
}

type BackupCompleted struct {
	Run       string `json:"run"`
	Key       string `json:"key"`
	Catalogs  int    `json:"catalog_rows"`
	Personnel int    `json:"personnel_rows"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
