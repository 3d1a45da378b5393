// Package warehouse serves material lots held in stock.
package warehouse

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/form"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Handler holds dependencies for warehouse handlers.
type Handler struct {
	*common.Resource[models.Material]
}

// Schema returns the material form schema.
func Schema(env common.Env) form.Schema[models.Material] {
	return form.Schema[models.Material]{
		Module: "material",
		NewID:  env.NextID("MAT"),
		Defaults: func(time.Time) models.Material {
			return models.Material{Status: "available", MSLLevel: "MSL 1"}
		},
		Required: []string{"id", "pn", "lot_number"},
		Normalize: func(m *models.Material) {
			m.PN = strings.TrimSpace(m.PN)
			m.LotNumber = strings.TrimSpace(m.LotNumber)
			m.Location = strings.ToUpper(strings.TrimSpace(m.Location))
		},
		Validate: validate,
	}
}

func validate(_ context.Context, ve *validation.ValidationErrors, m models.Material, _ *models.Material) {
	validation.ValidatePartNumber(ve, "pn", m.PN)
	validation.ValidateNonNegativeInt(ve, "quantity", m.Quantity)
	validation.ValidateMaxQuantity(ve, "quantity", m.Quantity)
	validation.ValidateMonth(ve, "expiry_date", m.ExpiryDate)
	validation.ValidateEnum(ve, "msl_level", m.MSLLevel, validation.ValidMSLLevels)
	validation.ValidateEnum(ve, "status", m.Status, validation.ValidMaterialStatuses)
	validation.ValidateMaxLength(ve, "supplier", m.Supplier, 255)
}

// New returns the warehouse handler writing to repo.
func New(env common.Env, repo store.Repository[models.Material]) *Handler {
	return &Handler{Resource: common.NewResource(env, "materials", "Warehouse", repo, Schema(env))}
}

// RegisterRoutes mounts the material routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
	})
}

// Stats summarizes stock.
type Stats struct {
	Lots          int `json:"lots"`
	TotalQuantity int `json:"total_quantity"`
	Low           int `json:"low"`
	Reserved      int `json:"reserved"`
	// Expired counts lots marked expired or whose expiry month has passed.
	Expired  int            `json:"expired"`
	ByMSL    map[string]int `json:"by_msl"`
	ByStatus map[string]int `json:"by_status"`
}

// Summarize computes Stats as of the month containing now.
func Summarize(items []models.Material, now time.Time) Stats {
	month := now.Format("2006-01")
	s := Stats{Lots: len(items), ByMSL: map[string]int{}, ByStatus: map[string]int{}}
	for _, m := range items {
		s.TotalQuantity += m.Quantity
		s.ByStatus[m.Status]++
		if m.MSLLevel != "" {
			s.ByMSL[m.MSLLevel]++
		}
		switch {
		case m.Status == "expired", m.ExpiryDate != "" && m.ExpiryDate < month:
			s.Expired++
		case m.Status == "low":
			s.Low++
		case m.Status == "reserved":
			s.Reserved++
		}
	}
	return s
}

// Stats handles GET /api/v1/materials/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(items, h.Now()))
}
