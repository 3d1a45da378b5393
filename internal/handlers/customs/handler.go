// Package customs serves import and export declarations.
package customs

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pcbaerp/internal/form"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Handler holds dependencies for customs handlers.
type Handler struct {
	*common.Resource[models.CustomsRecord]
}

// Schema returns the declaration form schema.
func Schema(env common.Env) form.Schema[models.CustomsRecord] {
	return form.Schema[models.CustomsRecord]{
		Module: "customs declaration",
		NewID:  env.NextID("TK"),
		Defaults: func(now time.Time) models.CustomsRecord {
			return models.CustomsRecord{Type: "export", Status: "processing", DeclarationDate: now.Format("2006-01-02")}
		},
		Required: []string{"id", "hs_code"},
		Normalize: func(c *models.CustomsRecord) {
			c.HSCode = strings.TrimSpace(c.HSCode)
			c.Origin = strings.TrimSpace(c.Origin)
		},
		Validate: func(_ context.Context, ve *validation.ValidationErrors, c models.CustomsRecord, prev *models.CustomsRecord) {
			validation.ValidateHSCode(ve, "hs_code", c.HSCode)
			validation.ValidateEnum(ve, "type", c.Type, validation.ValidCustomsTypes)
			validation.ValidateEnum(ve, "status", c.Status, validation.ValidCustomsStatuses)
			validation.ValidateNonNegativeInt(ve, "quantity", c.Quantity)
			validation.ValidateMaxQuantity(ve, "quantity", c.Quantity)
			validation.ValidateNonNegativeDecimal(ve, "value_usd", c.ValueUSD)
			validation.ValidateFloatRange(ve, "tax_rate", c.TaxRate, 0, 100)
			validation.ValidateDate(ve, "declaration_date", c.DeclarationDate)
			if prev != nil {
				validation.ValidateTransition(ve, "status", validation.CustomsTransitions, prev.Status, c.Status)
			}
		},
	}
}

// New returns the customs handler writing to repo.
func New(env common.Env, repo store.Repository[models.CustomsRecord]) *Handler {
	return &Handler{Resource: common.NewResource(env, "declarations", "Customs", repo, Schema(env))}
}

// RegisterRoutes mounts the declaration routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/{id}/duty", h.Duty)
	})
}

// DutyResult is the duty owed on one declaration.
type DutyResult struct {
	ID       string          `json:"id"`
	ValueUSD decimal.Decimal `json:"value_usd"`
	TaxRate  float64         `json:"tax_rate"`
	Duty     decimal.Decimal `json:"duty"`
}

// Duty handles GET /api/v1/declarations/:id/duty.
func (h *Handler) Duty(w http.ResponseWriter, r *http.Request) {
	c, err := h.Repo().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, DutyResult{ID: c.ID, ValueUSD: c.ValueUSD, TaxRate: c.TaxRate, Duty: c.Duty()})
}

// Stats summarizes declarations.
type Stats struct {
	Total       int             `json:"total"`
	Imports     int             `json:"imports"`
	Exports     int             `json:"exports"`
	ByStatus    map[string]int  `json:"by_status"`
	ImportValue decimal.Decimal `json:"import_value_usd"`
	ExportValue decimal.Decimal `json:"export_value_usd"`
	// DutyOwed excludes rejected declarations.
	DutyOwed decimal.Decimal `json:"duty_owed_usd"`
}

// Summarize computes Stats over decls.
func Summarize(decls []models.CustomsRecord) Stats {
	s := Stats{Total: len(decls), ByStatus: map[string]int{}}
	for _, st := range validation.ValidCustomsStatuses {
		s.ByStatus[st] = 0
	}
	for _, c := range decls {
		s.ByStatus[c.Status]++
		switch c.Type {
		case "import":
			s.Imports++
			s.ImportValue = s.ImportValue.Add(c.ValueUSD)
		case "export":
			s.Exports++
			s.ExportValue = s.ExportValue.Add(c.ValueUSD)
		}
		if c.Status != "rejected" {
			s.DutyOwed = s.DutyOwed.Add(c.Duty())
		}
	}
	return s
}

// Stats handles GET /api/v1/declarations/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	decls, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(decls))
}
