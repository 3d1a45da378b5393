package common

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pcbaerp/internal/form"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
)

// Resource serves the list, form and export routes for one collection.
type Resource[T store.Entity] struct {
	// Path is the URL segment under /api/v1, e.g. "work-orders".
	Path string
	// Module is the label used in audit entries and export sheets.
	Module string

	Forms  *form.Controller[T]
	Drafts *form.Sessions[T]

	env Env
	log *zap.Logger
}

// NewResource builds a Resource writing to repo under schema.
func NewResource[T store.Entity](env Env, path, module string, repo store.Repository[T], schema form.Schema[T]) *Resource[T] {
	return &Resource[T]{
		Path:   path,
		Module: module,
		Forms:  form.NewController(repo, schema).WithClock(env.Clock()),
		Drafts: form.NewSessions[T](env.capacity(), env.ttl()),
		env:    env,
		log:    env.Logger(path),
	}
}

// Now reads the resource's clock.
func (res *Resource[T]) Now() time.Time { return res.env.Clock()() }

// Repo returns the underlying collection.
func (res *Resource[T]) Repo() store.Repository[T] { return res.Forms.Repository() }

// Routes mounts the shared routes under /{Path}. extra runs inside the same
// sub-router before the /{id} routes, for module-specific endpoints.
func (res *Resource[T]) Routes(r chi.Router, extra ...func(chi.Router)) {
	r.Route("/"+res.Path, func(r chi.Router) {
		r.Get("/", res.List)
		r.Post("/", res.Create)
		r.Get("/export", res.Export)
		r.Post("/bulk", res.Bulk)

		r.Post("/drafts", res.OpenCreateDraft)
		r.Get("/drafts/{token}", res.GetDraft)
		r.Patch("/drafts/{token}", res.PatchDraft)
		r.Post("/drafts/{token}/submit", res.SubmitDraft)
		r.Delete("/drafts/{token}", res.CancelDraft)

		for _, fn := range extra {
			fn(r)
		}

		r.Get("/{id}", res.Get)
		r.Put("/{id}", res.Update)
		r.Delete("/{id}", res.Delete)
		r.Post("/{id}/draft", res.OpenEditDraft)
	})
}

// fail writes err, logging anything that is not a client error.
func (res *Resource[T]) fail(w http.ResponseWriter, r *http.Request, err error) {
	if isInternal(err) {
		res.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	response.FromError(w, err)
}

func isInternal(err error) bool {
	for _, known := range []error{
		store.ErrNotFound, store.ErrDuplicateID, store.ErrEmptyID,
		form.ErrDraftNotFound, form.ErrDraftClosed, form.ErrUnknownField, form.ErrInvalidValue,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	var ve interface{ HasErrors() bool }
	return !errors.As(err, &ve)
}

// decodeFields reads a JSON object body. An empty body yields no fields.
func decodeFields(r *http.Request) (map[string]any, error) {
	fields := map[string]any{}
	if r.Body == nil {
		return fields, nil
	}
	if err := response.DecodeBody(r, &fields); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return fields, nil
}

// Confirmed reports whether a destructive request carries confirm=true.
func Confirmed(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("confirm"), "true")
}

// RequireConfirmation writes the 428 sent for unconfirmed destructive requests.
func RequireConfirmation(w http.ResponseWriter, what string) {
	response.Err(w, "confirmation required: repeat with ?confirm=true to "+what, http.StatusPreconditionRequired)
}

// List handles GET /{Path}?search=.
func (res *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	items, err := res.Repo().List(r.Context(), search)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSONMeta(w, items, len(items), search)
}

// Get handles GET /{Path}/{id}.
func (res *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := res.Repo().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSON(w, rec)
}

// Create handles POST /{Path}: a create draft filled from the body and
// submitted in one step.
func (res *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	d, err := res.Forms.BeginCreate(r.Context(), fields)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	rec, err := res.Forms.Submit(r.Context(), d)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.Created(w, rec)
}

// Update handles PUT /{Path}/{id}: the stored record with the body's fields
// merged over it, submitted as an edit.
func (res *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	rec, err := res.Edit(r.Context(), chi.URLParam(r, "id"), func(d *form.Draft[T]) error {
		return form.ApplyFields(d, fields)
	})
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSON(w, rec)
}

// Edit opens an edit draft for id, lets mutate change it and submits it.
func (res *Resource[T]) Edit(ctx context.Context, id string, mutate func(*form.Draft[T]) error) (T, error) {
	var zero T
	d, err := res.Forms.BeginEdit(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := mutate(d); err != nil {
		return zero, err
	}
	return res.Forms.Submit(ctx, d)
}

// Delete handles DELETE /{Path}/{id}?confirm=true.
func (res *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !Confirmed(r) {
		RequireConfirmation(w, "delete "+id)
		return
	}
	if err := res.Repo().Delete(r.Context(), id); err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSON(w, map[string]string{"deleted": id})
}

func (res *Resource[T]) writeDraft(w http.ResponseWriter, r *http.Request, token string, status int) {
	d, err := res.Drafts.Get(token)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	if status == http.StatusCreated {
		response.Created(w, d)
		return
	}
	response.JSON(w, d)
}

// OpenCreateDraft handles POST /{Path}/drafts. The body holds initial
// field overrides.
func (res *Resource[T]) OpenCreateDraft(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	d, err := res.Forms.BeginCreate(r.Context(), fields)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	res.writeDraft(w, r, res.Drafts.Open(d), http.StatusCreated)
}

// OpenEditDraft handles POST /{Path}/{id}/draft.
func (res *Resource[T]) OpenEditDraft(w http.ResponseWriter, r *http.Request) {
	d, err := res.Forms.BeginEdit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		res.fail(w, r, err)
		return
	}
	res.writeDraft(w, r, res.Drafts.Open(d), http.StatusCreated)
}

// GetDraft handles GET /{Path}/drafts/{token}.
func (res *Resource[T]) GetDraft(w http.ResponseWriter, r *http.Request) {
	res.writeDraft(w, r, chi.URLParam(r, "token"), http.StatusOK)
}

// PatchDraft handles PATCH /{Path}/drafts/{token}: one UpdateField per
// body key.
func (res *Resource[T]) PatchDraft(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	fields, err := decodeFields(r)
	if err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	err = res.Drafts.With(token, func(d *form.Draft[T]) error {
		return form.ApplyFields(d, fields)
	})
	if err != nil {
		res.fail(w, r, err)
		return
	}
	res.writeDraft(w, r, token, http.StatusOK)
}

// SubmitDraft handles POST /{Path}/drafts/{token}/submit. A validation
// failure leaves the draft open.
func (res *Resource[T]) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	var rec T
	err := res.Drafts.With(chi.URLParam(r, "token"), func(d *form.Draft[T]) error {
		var err error
		rec, err = res.Forms.Submit(r.Context(), d)
		return err
	})
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSON(w, rec)
}

// CancelDraft handles DELETE /{Path}/drafts/{token}.
func (res *Resource[T]) CancelDraft(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	err := res.Drafts.With(token, func(d *form.Draft[T]) error {
		res.Forms.Cancel(d)
		return nil
	})
	if err != nil {
		res.fail(w, r, err)
		return
	}
	response.JSON(w, map[string]string{"cancelled": token})
}
