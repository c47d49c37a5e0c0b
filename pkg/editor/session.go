package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
)

// MetaKey is the reserved object carrying editor bookkeeping inside every config.
const MetaKey = "_meta"

// SaveFunc persists a complete config document.
type SaveFunc func(ctx context.Context, key string, value *jsonvalue.Object) error

// Session holds an in-memory draft of one config and the last saved baseline.
// A Session is owned by a single editing flow and is not safe for concurrent use.
type Session struct {
	key       string
	adminPath string
	config    *jsonvalue.Object
	baseline  *jsonvalue.Object
	now       func() time.Time
}

// NewSession starts editing stored; a nil stored value starts from an empty object.
func NewSession(key string, stored *jsonvalue.Object) *Session {
	if stored == nil {
		stored = jsonvalue.NewObject()
	}
	return &Session{
		key:      key,
		config:   stored.Clone(),
		baseline: stored.Clone(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for _meta.updatedAt.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// WithAdminPath records the admin page the edits come from in _meta.adminPath on save.
func (s *Session) WithAdminPath(path string) *Session {
	s.adminPath = path
	return s
}

// Key returns the config key being edited.
func (s *Session) Key() string { return s.key }

// Config returns a copy of the current draft.
func (s *Session) Config() *jsonvalue.Object { return s.config.Clone() }

// Baseline returns a copy of the last saved state.
func (s *Session) Baseline() *jsonvalue.Object { return s.baseline.Clone() }

// IsDirty reports whether the draft differs from the baseline.
func (s *Session) IsDirty() bool {
	return !jsonvalue.Equal(s.config, s.baseline)
}

// Apply runs ops against the draft. Either all ops apply or the draft is left untouched.
func (s *Session) Apply(ops ...Operation) error {
	next, err := ApplyAll(s.config, ops)
	if err != nil {
		return err
	}
	s.config = next
	return nil
}

// Replace swaps the whole draft.
func (s *Session) Replace(value *jsonvalue.Object) {
	if value == nil {
		value = jsonvalue.NewObject()
	}
	s.config = value.Clone()
}

// Reset discards every unsaved edit.
func (s *Session) Reset() {
	s.config = s.baseline.Clone()
}

// Save stamps _meta and submits the whole draft. On success the saved document becomes
// the new baseline; on failure the draft is kept so the caller can retry.
func (s *Session) Save(ctx context.Context, save SaveFunc) (*jsonvalue.Object, error) {
	payload := s.withMeta(s.config)
	if err := save(ctx, s.key, payload.Clone()); err != nil {
		return nil, err
	}
	s.config = payload
	s.baseline = payload.Clone()
	return payload.Clone(), nil
}

func (s *Session) withMeta(config *jsonvalue.Object) *jsonvalue.Object {
	meta := jsonvalue.NewObject()
	if existing, ok := config.Get(MetaKey); ok {
		if obj, isObj := existing.(*jsonvalue.Object); isObj {
			meta = obj.Clone()
		}
	}
	meta.Set("updatedAt", s.now().Format(time.RFC3339Nano))
	if schema, _ := meta.Get("schema"); schema == nil || schema == "" {
		meta.Set("schema", fmt.Sprintf("%s.v1", s.key))
	}
	if s.adminPath != "" {
		meta.Set("adminPath", s.adminPath)
	}
	return SetField(config, MetaKey, meta)
}

// ErrDraftClosed is returned when a committed or cancelled draft is used again.
var ErrDraftClosed = errors.New("field draft already closed")

// FieldDraft is a scoped copy of one sub-field of a Session. Committing merges only that
// field back; cancelling leaves the session untouched.
type FieldDraft struct {
	session *Session
	path    jsonvalue.Path
	value   jsonvalue.Value
	closed  bool
}

// OpenField starts a draft of the field at path. Missing fields start as null.
func (s *Session) OpenField(path jsonvalue.Path) *FieldDraft {
	value, _ := jsonvalue.GetPath(s.config, path)
	return &FieldDraft{session: s, path: path, value: jsonvalue.Clone(value)}
}

// Path returns the field address.
func (d *FieldDraft) Path() jsonvalue.Path { return d.path }

// Value returns a copy of the draft value.
func (d *FieldDraft) Value() jsonvalue.Value { return jsonvalue.Clone(d.value) }

// Set replaces the draft value.
func (d *FieldDraft) Set(value jsonvalue.Value) error {
	if d.closed {
		return ErrDraftClosed
	}
	d.value = jsonvalue.Clone(value)
	return nil
}

// Commit merges the draft value into the session draft at the field path.
func (d *FieldDraft) Commit() error {
	if d.closed {
		return ErrDraftClosed
	}
	next, err := jsonvalue.SetPath(d.session.config, d.path, d.value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	obj, ok := next.(*jsonvalue.Object)
	if !ok {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, jsonvalue.ErrNotObject)
	}
	d.session.config = obj
	d.closed = true
	return nil
}

// Cancel discards the draft.
func (d *FieldDraft) Cancel() {
	d.closed = true
}
