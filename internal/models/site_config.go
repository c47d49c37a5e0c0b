package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/site-cms-api/pkg/jsondiff"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// HistoryAction tells a regular save apart from a restore.
type HistoryAction string

const (
	HistoryActionUpdate  HistoryAction = "update"
	HistoryActionRestore HistoryAction = "restore"
)

// RestoreMode selects which side of a history entry a restore writes back.
type RestoreMode string

const (
	RestoreModeVersion  RestoreMode = "version"
	RestoreModePrevious RestoreMode = "previous"
)

// ExportFormat selects the history export renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// SiteConfig is one keyed JSON document.
type SiteConfig struct {
	Key       string            `db:"key" json:"key"`
	Value     *jsonvalue.Object `db:"value" json:"value"`
	UpdatedBy *string           `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// SiteConfigSummary is a list row without the document body.
type SiteConfigSummary struct {
	Key       string    `db:"key" json:"key"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HistoryDiff is the stored diff column.
type HistoryDiff []jsondiff.Change

// Scan implements sql.Scanner.
func (d *HistoryDiff) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = HistoryDiff{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into HistoryDiff", src)
	}
	var changes []jsondiff.Change
	if err := json.Unmarshal(raw, &changes); err != nil {
		return fmt.Errorf("decode history diff: %w", err)
	}
	*d = changes
	return nil
}

// Value implements driver.Valuer.
func (d HistoryDiff) Value() (driver.Value, error) {
	changes := []jsondiff.Change(d)
	if changes == nil {
		changes = []jsondiff.Change{}
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// SiteConfigHistory is one append-only history record.
type SiteConfigHistory struct {
	ID            string            `db:"id" json:"id"`
	ConfigKey     string            `db:"config_key" json:"key"`
	Action        HistoryAction     `db:"action" json:"action"`
	Value         *jsonvalue.Object `db:"value" json:"value"`
	PreviousValue *jsonvalue.Object `db:"previous_value" json:"previous_value"`
	Diff          HistoryDiff       `db:"diff" json:"diff"`
	ActorID       *string           `db:"actor_id" json:"actor_id,omitempty"`
	ActorUsername string            `db:"actor_username" json:"actor_username"`
	ActorRole     string            `db:"actor_role" json:"actor_role"`
	Note          *string           `db:"note" json:"note,omitempty"`
	SourcePath    *string           `db:"source_path" json:"source_path,omitempty"`
	RestoredFrom  *string           `db:"restored_from" json:"restored_from,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// Actor identifies who performed a write.
type Actor struct {
	ID       string
	Username string
	Role     UserRole
}

// WriteMeta describes a config write for its history entry.
type WriteMeta struct {
	Actor        Actor
	Action       HistoryAction
	Note         string
	SourcePath   string
	RestoredFrom string
}
