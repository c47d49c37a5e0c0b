package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/pkg/editor"
	"github.com/noah-isme/site-cms-api/pkg/jsondiff"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// SaveSiteConfigRequest replaces a whole config document.
type SaveSiteConfigRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
	Note  string          `json:"note" validate:"max=500"`
}

// ApplyEditsRequest runs editor operations against the stored document and saves it.
type ApplyEditsRequest struct {
	Operations []editor.Operation `json:"operations" validate:"required,min=1,dive"`
	Note       string             `json:"note" validate:"max=500"`
	AdminPath  string             `json:"admin_path" validate:"omitempty,max=255"`
}

// UpdateFieldRequest replaces one sub-field of a config.
type UpdateFieldRequest struct {
	Path      jsonvalue.Path  `json:"path" validate:"required,min=1,dive,required"`
	Value     json.RawMessage `json:"value" validate:"required"`
	Note      string          `json:"note" validate:"max=500"`
	AdminPath string          `json:"admin_path" validate:"omitempty,max=255"`
}

// RestoreRequest selects which side of a history entry is written back.
type RestoreRequest struct {
	Mode models.RestoreMode `json:"mode" form:"mode" validate:"omitempty,oneof=version previous"`
	Note string             `json:"note" validate:"max=500"`
}

// HistoryQuery bounds history listings.
type HistoryQuery struct {
	Limit     int `form:"limit" validate:"omitempty,min=1"`
	DiffLimit int `form:"diff_limit" validate:"omitempty,min=1"`
}

// SiteConfigDetail is a config plus its recent history.
type SiteConfigDetail struct {
	Key       string            `json:"key"`
	Value     *jsonvalue.Object `json:"value"`
	UpdatedBy *string           `json:"updated_by,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
	History   []HistoryEntry    `json:"history"`
}

// HistoryActor identifies who wrote an entry.
type HistoryActor struct {
	ID       *string `json:"id,omitempty"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
}

// HistoryEntry is the API shape of a history record. Diff holds at most the preview limit;
// DiffOmitted counts the changes left out.
type HistoryEntry struct {
	ID            string            `json:"id"`
	Key           string            `json:"key"`
	Action        string            `json:"action"`
	Value         *jsonvalue.Object `json:"value"`
	PreviousValue *jsonvalue.Object `json:"previous_value"`
	Diff          []jsondiff.Change `json:"diff"`
	DiffTotal     int               `json:"diff_total"`
	DiffOmitted   int               `json:"diff_omitted"`
	Actor         HistoryActor      `json:"actor"`
	Note          *string           `json:"note,omitempty"`
	SourcePath    *string           `json:"source_path,omitempty"`
	RestoredFrom  *string           `json:"restored_from,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewHistoryEntry converts a stored entry, truncating the diff to diffLimit changes.
// A non-positive diffLimit keeps every change.
func NewHistoryEntry(entry models.SiteConfigHistory, diffLimit int) HistoryEntry {
	changes := []jsondiff.Change(entry.Diff)
	if changes == nil {
		changes = []jsondiff.Change{}
	}
	shown, omitted := jsondiff.Truncate(changes, diffLimit)
	return HistoryEntry{
		ID:            entry.ID,
		Key:           entry.ConfigKey,
		Action:        string(entry.Action),
		Value:         entry.Value,
		PreviousValue: entry.PreviousValue,
		Diff:          shown,
		DiffTotal:     len(changes),
		DiffOmitted:   omitted,
		Actor: HistoryActor{
			ID:       entry.ActorID,
			Username: entry.ActorUsername,
			Role:     entry.ActorRole,
		},
		Note:         entry.Note,
		SourcePath:   entry.SourcePath,
		RestoredFrom: entry.RestoredFrom,
		CreatedAt:    entry.CreatedAt,
	}
}

// NewHistoryEntries converts a slice of entries.
func NewHistoryEntries(entries []models.SiteConfigHistory, diffLimit int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NewHistoryEntry(entry, diffLimit))
	}
	return out
}

// HistoryExport is a rendered history file.
type HistoryExport struct {
	Filename    string
	ContentType string
	Content     []byte
}
