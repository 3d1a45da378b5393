// Package form stages draft copies of records so that edits never touch a
// collection until they are submitted and validated.
package form

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid field value")
	ErrDraftClosed  = errors.New("draft already closed")
)

// Mode tells whether a draft creates a new record or edits an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Schema declares how one module builds, checks and normalizes its records.
type Schema[T store.Entity] struct {
	// Module names the collection in messages, e.g. "work order".
	Module string
	// NewID returns a fresh identifier. taken reports ids already stored.
	NewID func(taken func(string) bool) string
	// Defaults returns the initial record for a create draft.
	Defaults func(now time.Time) T
	// Required lists JSON field names that must be non-empty/non-zero.
	Required []string
	// Normalize is applied to the draft record right before validation.
	Normalize func(rec *T)
	// Validate adds module checks. prev is the stored record being replaced,
	// nil on insert.
	Validate func(ctx context.Context, ve *validation.ValidationErrors, rec T, prev *T)
}

// Draft is one open modal: a private copy of a record plus where it came from.
type Draft[T store.Entity] struct {
	Token      string    `json:"token"`
	Mode       Mode      `json:"mode"`
	OriginalID string    `json:"original_id,omitempty"`
	Record     T         `json:"record"`
	OpenedAt   time.Time `json:"opened_at"`

	closed bool
}

// Closed reports whether the draft was submitted or cancelled.
func (d *Draft[T]) Closed() bool { return d.closed }

// Controller drives drafts for one repository.
type Controller[T store.Entity] struct {
	repo   store.Repository[T]
	schema Schema[T]
	now    func() time.Time
}

// NewController returns a Controller writing to repo.
func NewController[T store.Entity](repo store.Repository[T], schema Schema[T]) *Controller[T] {
	return &Controller[T]{repo: repo, schema: schema, now: time.Now}
}

// WithClock overrides the clock used for defaults and draft timestamps.
func (c *Controller[T]) WithClock(now func() time.Time) *Controller[T] {
	c.now = now
	return c
}

// Schema returns the controller's schema.
func (c *Controller[T]) Schema() Schema[T] { return c.schema }

// Repository returns the collection the controller writes to.
func (c *Controller[T]) Repository() store.Repository[T] { return c.repo }

// BeginCreate opens a draft with a fresh id and the module defaults, then
// applies overrides field by field.
func (c *Controller[T]) BeginCreate(ctx context.Context, overrides map[string]any) (*Draft[T], error) {
	now := c.now()
	var rec T
	if c.schema.Defaults != nil {
		rec = c.schema.Defaults(now)
	}
	d := &Draft[T]{Mode: ModeCreate, Record: rec, OpenedAt: now}
	if c.schema.NewID != nil {
		if err := UpdateField(d, "id", c.schema.NewID(store.Exists(ctx, c.repo))); err != nil {
			return nil, err
		}
	}
	if err := ApplyFields(d, overrides); err != nil {
		return nil, err
	}
	return d, nil
}

// BeginEdit opens a draft holding a deep copy of the stored record id.
func (c *Controller[T]) BeginEdit(ctx context.Context, id string) (*Draft[T], error) {
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Draft[T]{Mode: ModeEdit, OriginalID: id, Record: rec, OpenedAt: c.now()}, nil
}

// ApplyFields sets every key of fields on the draft, in key order. The
// fields go onto a copy of the record, so on failure the draft is unchanged.
func ApplyFields[T store.Entity](d *Draft[T], fields map[string]any) error {
	if d.closed {
		return ErrDraftClosed
	}
	rec, err := store.Clone(d.Record)
	if err != nil {
		return fmt.Errorf("copy draft: %w", err)
	}
	staged := &Draft[T]{Mode: d.Mode, OriginalID: d.OriginalID, Record: rec, OpenedAt: d.OpenedAt}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if err := UpdateField(staged, name, fields[name]); err != nil {
			return err
		}
	}
	d.Record = staged.Record
	return nil
}

// Submit validates the draft and merges it into the collection: edit drafts
// replace their original record, create drafts are inserted unless their id
// is already stored, in which case that record is replaced. On a validation
// failure the returned error is a *validation.ValidationErrors and the draft
// stays open.
func (c *Controller[T]) Submit(ctx context.Context, d *Draft[T]) (T, error) {
	var zero T
	if d.closed {
		return zero, ErrDraftClosed
	}
	rec, err := store.Clone(d.Record)
	if err != nil {
		return zero, fmt.Errorf("copy draft: %w", err)
	}
	if c.schema.Normalize != nil {
		c.schema.Normalize(&rec)
	}

	targetID := rec.Key()
	if d.Mode == ModeEdit {
		targetID = d.OriginalID
	}
	var prev *T
	if targetID != "" {
		stored, err := c.repo.Get(ctx, targetID)
		switch {
		case err == nil:
			prev = &stored
		case d.Mode == ModeEdit || !errors.Is(err, store.ErrNotFound):
			return zero, err
		}
	}

	ve := &validation.ValidationErrors{}
	requireFields(ve, rec, c.schema.Required)
	if c.schema.Validate != nil {
		c.schema.Validate(ctx, ve, rec, prev)
	}
	if ve.HasErrors() {
		return zero, ve
	}

	if prev != nil {
		err = c.repo.Update(ctx, targetID, rec)
	} else {
		err = c.repo.Insert(ctx, rec)
	}
	if err != nil {
		return zero, err
	}
	d.Record = rec
	d.closed = true
	return rec, nil
}

// Cancel discards the draft. The collection is not touched.
func (c *Controller[T]) Cancel(d *Draft[T]) {
	d.closed = true
}
