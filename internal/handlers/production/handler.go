// Package production serves station logs recorded as units move along a
// work order's route.
package production

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/dashboard"
	"pcbaerp/internal/form"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Handler holds dependencies for production handlers.
type Handler struct {
	*common.Resource[models.ProductionLog]
}

// Schema returns the production log form schema. workOrders backs the
// wo_id reference check.
func Schema(env common.Env, workOrders store.Repository[models.WorkOrder]) form.Schema[models.ProductionLog] {
	return form.Schema[models.ProductionLog]{
		Module: "production log",
		NewID:  env.NextID("PL"),
		Defaults: func(now time.Time) models.ProductionLog {
			return models.ProductionLog{Timestamp: now.Format("2006-01-02 15:04"), Status: "pass"}
		},
		Required: []string{"id", "sn", "wo_id", "station"},
		Normalize: func(l *models.ProductionLog) {
			l.SN = strings.ToUpper(strings.TrimSpace(l.SN))
			l.WOID = strings.TrimSpace(l.WOID)
			l.Station = strings.TrimSpace(l.Station)
		},
		Validate: func(ctx context.Context, ve *validation.ValidationErrors, l models.ProductionLog, _ *models.ProductionLog) {
			validation.ValidateEnum(ve, "status", l.Status, validation.ValidLogStatuses)
			validation.ValidateTimestamp(ve, "timestamp", l.Timestamp)
			validation.ValidateMaxLength(ve, "operator", l.Operator, 255)
			if workOrders != nil {
				validation.ValidateReference(ve, "wo_id", "work order", l.WOID, store.Exists(ctx, workOrders))
			}
		},
	}
}

// New returns the production handler writing to repo.
func New(env common.Env, repo store.Repository[models.ProductionLog], workOrders store.Repository[models.WorkOrder]) *Handler {
	return &Handler{Resource: common.NewResource(env, "production-logs", "Production", repo, Schema(env, workOrders))}
}

// RegisterRoutes mounts the production log routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
	})
}

// StationStats is the pass/fail tally for one station.
type StationStats struct {
	Station  string  `json:"station"`
	Pass     int     `json:"pass"`
	Fail     int     `json:"fail"`
	PassRate float64 `json:"pass_rate"`
}

// Stats summarizes production logs.
type Stats struct {
	Logs     int            `json:"logs"`
	Units    int            `json:"units"`
	Stations []StationStats `json:"stations"`
	// FPY is the share of units that never failed a station, in percent.
	FPY float64 `json:"fpy"`
}

// Summarize computes Stats over logs. Stations are sorted by name.
func Summarize(logs []models.ProductionLog) Stats {
	byStation := map[string]*StationStats{}
	failed := map[string]bool{}
	for _, l := range logs {
		st := byStation[l.Station]
		if st == nil {
			st = &StationStats{Station: l.Station}
			byStation[l.Station] = st
		}
		if l.Status == "fail" {
			st.Fail++
		} else {
			st.Pass++
		}
		failed[l.SN] = failed[l.SN] || l.Status == "fail"
	}

	s := Stats{Logs: len(logs), Units: len(failed), Stations: make([]StationStats, 0, len(byStation))}
	for _, st := range byStation {
		st.PassRate = percent(st.Pass, st.Pass+st.Fail)
		s.Stations = append(s.Stations, *st)
	}
	sort.Slice(s.Stations, func(i, j int) bool { return s.Stations[i].Station < s.Stations[j].Station })

	clean := 0
	for _, f := range failed {
		if !f {
			clean++
		}
	}
	s.FPY = percent(clean, len(failed))
	return s
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return dashboard.Round(float64(n)/float64(of)*100, 1)
}

// Stats handles GET /api/v1/production-logs/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(logs))
}
