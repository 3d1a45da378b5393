// Package shipping serves outbound shipments of finished work orders.
package shipping

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

// Handler holds dependencies for shipping handlers.
type Handler struct {
	*common.Resource[models.ShippingRecord]
}

// Schema returns the shipment form schema. workOrders backs the wo_id
// reference check.
func Schema(env common.Env, workOrders store.Repository[models.WorkOrder]) form.Schema[models.ShippingRecord] {
	return form.Schema[models.ShippingRecord]{
		Module: "shipment",
		NewID:  env.NextID("SHIP"),
		Defaults: func(now time.Time) models.ShippingRecord {
			return models.ShippingRecord{Status: "pending", ShipDate: now.Format("2006-01-02")}
		},
		Required: []string{"id", "wo_id", "customer"},
		Normalize: func(s *models.ShippingRecord) {
			s.WOID = strings.TrimSpace(s.WOID)
			s.Customer = strings.TrimSpace(s.Customer)
			s.TrackingNumber = strings.ToUpper(strings.TrimSpace(s.TrackingNumber))
		},
		Validate: func(ctx context.Context, ve *validation.ValidationErrors, s models.ShippingRecord, prev *models.ShippingRecord) {
			validation.ValidateNonNegativeFloat(ve, "weight", s.Weight)
			validation.ValidateEnum(ve, "status", s.Status, validation.ValidShipmentStatuses)
			validation.ValidateDate(ve, "ship_date", s.ShipDate)
			validation.ValidateMaxLength(ve, "dimensions", s.Dimensions, 64)
			if workOrders != nil {
				validation.ValidateReference(ve, "wo_id", "work order", s.WOID, store.Exists(ctx, workOrders))
			}
			if prev != nil {
				validation.ValidateTransition(ve, "status", validation.ShipmentTransitions, prev.Status, s.Status)
			}
		},
	}
}

// New returns the shipping handler writing to repo.
func New(env common.Env, repo store.Repository[models.ShippingRecord], workOrders store.Repository[models.WorkOrder]) *Handler {
	return &Handler{Resource: common.NewResource(env, "shipments", "Shipping", repo, Schema(env, workOrders))}
}

// RegisterRoutes mounts the shipment routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
	})
}

// Stats summarizes shipments.
type Stats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByCarrier   map[string]int `json:"by_carrier"`
	TotalWeight float64        `json:"total_weight"`
}

// Summarize computes Stats over shipments.
func Summarize(ships []models.ShippingRecord) Stats {
	s := Stats{Total: len(ships), ByStatus: map[string]int{}, ByCarrier: map[string]int{}}
	for _, st := range validation.ValidShipmentStatuses {
		s.ByStatus[st] = 0
	}
	for _, sh := range ships {
		s.ByStatus[sh.Status]++
		if sh.Carrier != "" {
			s.ByCarrier[sh.Carrier]++
		}
		s.TotalWeight += sh.Weight
	}
	return s
}

// Stats handles GET /api/v1/shipments/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ships, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(ships))
}
