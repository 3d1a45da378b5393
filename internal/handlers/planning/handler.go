// Package planning serves work orders and their production travelers.
package planning

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
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

// DefaultTraveler is the SMT route given to new work orders.
var DefaultTraveler = []string{"Baking", "Solder Paste Print", "Pick & Place", "Reflow Oven", "AOI"}

// Handler holds dependencies for planning handlers.
type Handler struct {
	*common.Resource[models.WorkOrder]
}

// Schema returns the work order form schema.
func Schema(env common.Env) form.Schema[models.WorkOrder] {
	return form.Schema[models.WorkOrder]{
		Module: "work order",
		NewID:  env.NextID("WO"),
		Defaults: func(now time.Time) models.WorkOrder {
			today := now.Format("2006-01-02")
			return models.WorkOrder{
				Quantity:  100,
				Status:    models.WOCreated,
				CreatedAt: today,
				DueDate:   today,
				Traveler:  append([]string(nil), DefaultTraveler...),
			}
		},
		Required: []string{"id", "customer", "part_number"},
		Normalize: func(wo *models.WorkOrder) {
			wo.Customer = strings.TrimSpace(wo.Customer)
			wo.PartNumber = strings.TrimSpace(wo.PartNumber)
			if wo.Traveler == nil {
				wo.Traveler = []string{}
			}
		},
		Validate: validate,
	}
}

func validate(_ context.Context, ve *validation.ValidationErrors, wo models.WorkOrder, prev *models.WorkOrder) {
	validation.ValidatePositiveInt(ve, "quantity", wo.Quantity)
	validation.ValidateMaxQuantity(ve, "quantity", wo.Quantity)
	validation.ValidatePartNumber(ve, "part_number", wo.PartNumber)
	validation.ValidateMaxLength(ve, "customer", wo.Customer, 255)
	validation.ValidateEnum(ve, "status", wo.Status, validation.ValidWOStatuses)
	validation.ValidateDate(ve, "created_at", wo.CreatedAt)
	validation.ValidateDate(ve, "due_date", wo.DueDate)
	validation.ValidateDateOrder(ve, "due_date", wo.DueDate, "created_at", wo.CreatedAt)
	for i, step := range wo.Traveler {
		if strings.TrimSpace(step) == "" {
			ve.Add(fmt.Sprintf("traveler[%d]", i), "must not be blank")
		}
	}
	if prev != nil {
		validation.ValidateTransition(ve, "status", validation.WOTransitions, prev.Status, wo.Status)
	}
}

// New returns the planning handler writing to repo.
func New(env common.Env, repo store.Repository[models.WorkOrder]) *Handler {
	return &Handler{Resource: common.NewResource(env, "work-orders", "Planning", repo, Schema(env))}
}

// RegisterRoutes mounts the work order routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/{id}/traveler", h.AppendStep)
		r.Delete("/{id}/traveler/{index}", h.RemoveStep)
	})
}

// Stats summarizes work orders by status.
type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	InProduction int            `json:"in_production"`
	Completed    int            `json:"completed"`
	New          int            `json:"new"`
	UnitsOrdered int            `json:"units_ordered"`
	// Overdue counts open orders whose due date is before today.
	Overdue int `json:"overdue"`
}

// Summarize computes Stats as of today.
func Summarize(wos []models.WorkOrder, today string) Stats {
	s := Stats{Total: len(wos), ByStatus: map[string]int{}}
	for _, st := range validation.ValidWOStatuses {
		s.ByStatus[st] = 0
	}
	for _, wo := range wos {
		s.ByStatus[wo.Status]++
		s.UnitsOrdered += wo.Quantity
		open := wo.Status != models.WOCompleted && wo.Status != models.WOClosed
		if open && wo.DueDate != "" && wo.DueDate < today {
			s.Overdue++
		}
	}
	s.InProduction = s.ByStatus[models.WOInProduction]
	s.Completed = s.ByStatus[models.WOCompleted]
	s.New = s.ByStatus[models.WOCreated]
	return s
}

// Stats handles GET /api/v1/work-orders/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	wos, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(wos, h.Now().Format("2006-01-02")))
}

type stepRequest struct {
	Step string `json:"step"`
}

// AppendStep handles POST /api/v1/work-orders/:id/traveler. Steps may
// repeat; a route can revisit a station.
func (h *Handler) AppendStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	step := strings.TrimSpace(req.Step)
	if step == "" {
		ve := &validation.ValidationErrors{}
		ve.Add("step", "is required")
		response.Validation(w, ve)
		return
	}
	wo, err := h.Edit(r.Context(), chi.URLParam(r, "id"), func(d *form.Draft[models.WorkOrder]) error {
		d.Record.Traveler = append(d.Record.Traveler, step)
		return nil
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, wo)
}

// RemoveStep handles DELETE /api/v1/work-orders/:id/traveler/:index.
func (h *Handler) RemoveStep(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.Err(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	wo, err := h.Edit(r.Context(), chi.URLParam(r, "id"), func(d *form.Draft[models.WorkOrder]) error {
		if idx < 0 || idx >= len(d.Record.Traveler) {
			ve := &validation.ValidationErrors{}
			ve.Add("index", fmt.Sprintf("must be between 0 and %d", len(d.Record.Traveler)-1))
			return ve
		}
		d.Record.Traveler = append(d.Record.Traveler[:idx:idx], d.Record.Traveler[idx+1:]...)
		return nil
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, wo)
}
