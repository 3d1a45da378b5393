// Package dashboard serves headline KPIs, chart datasets and AI insights.
package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/dashboard"
	"pcbaerp/internal/insight"
	"pcbaerp/internal/response"
)

// Handler holds dependencies for dashboard handlers.
type Handler struct {
	Insight *insight.Fetcher
	// Company returns the configured company name.
	Company func() string
}

// RegisterRoutes mounts the dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.Overview)
		r.Get("/charts", h.ListCharts)
		r.Get("/charts/{dataset}", h.Chart)
		r.Get("/top", h.Top)
		r.Get("/aggregate", h.Aggregate)
		r.Get("/insights", h.Insights)
	})
}

// Overview is the dashboard landing payload.
type Overview struct {
	Company string          `json:"company"`
	KPIs    []dashboard.KPI `json:"kpis"`
}

// Overview handles GET /api/v1/dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o := Overview{KPIs: dashboard.KPIs()}
	if h.Company != nil {
		o.Company = h.Company()
	}
	response.JSON(w, o)
}

// ListCharts handles GET /api/v1/dashboard/charts.
func (h *Handler) ListCharts(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, dashboard.Names())
}

func lookup(w http.ResponseWriter, name string) (dashboard.Dataset, bool) {
	ds, err := dashboard.Lookup(name)
	if err != nil {
		response.Err(w, err.Error(), http.StatusNotFound)
		return ds, false
	}
	return ds, true
}

// Chart handles GET /api/v1/dashboard/charts/:dataset.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	ds, ok := lookup(w, chi.URLParam(r, "dataset"))
	if !ok {
		return
	}
	response.JSON(w, ds)
}

// Top handles GET /api/v1/dashboard/top?dataset=&key=&n=. A missing or
// non-positive n returns the whole dataset sorted.
func (h *Handler) Top(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ds, ok := lookup(w, q.Get("dataset"))
	if !ok {
		return
	}
	key := q.Get("key")
	if key == "" {
		response.Err(w, "key is required", http.StatusBadRequest)
		return
	}
	n, _ := strconv.Atoi(q.Get("n"))
	response.JSON(w, dashboard.TopN(ds, n, key))
}

// AggregateResult echoes the metric with its value.
type AggregateResult struct {
	Dataset string           `json:"dataset"`
	Metric  dashboard.Metric `json:"metric"`
	Value   float64          `json:"value"`
}

// Aggregate handles GET /api/v1/dashboard/aggregate?dataset=&op=&key=&of=.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ds, ok := lookup(w, q.Get("dataset"))
	if !ok {
		return
	}
	m := dashboard.Metric{Op: dashboard.Op(q.Get("op")), Key: q.Get("key"), Of: q.Get("of")}
	v, err := dashboard.Aggregate(ds, m)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownOp) {
			response.Err(w, err.Error(), http.StatusBadRequest)
			return
		}
		response.FromError(w, err)
		return
	}
	response.JSON(w, AggregateResult{Dataset: ds.Name, Metric: m, Value: dashboard.Round(v, 2)})
}

// InsightResult carries the generated text. Configured is false when no AI
// service is set up and the text is the offline fallback.
type InsightResult struct {
	Dataset    string `json:"dataset"`
	Text       string `json:"text"`
	Configured bool   `json:"configured"`
}

// Insights handles GET /api/v1/dashboard/insights?dataset=. The request is
// abandoned when the client goes away.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("dataset")
	if name == "" {
		name = dashboard.DatasetYield
	}
	ds, ok := lookup(w, name)
	if !ok {
		return
	}
	if h.Insight == nil {
		response.JSON(w, InsightResult{Dataset: ds.Name, Text: insight.FallbackText})
		return
	}

	task := h.Insight.Start(r.Context(), ds.Rows)
	defer task.Cancel()
	text, done := task.Wait(r.Context())
	if !done {
		return
	}
	response.JSON(w, InsightResult{Dataset: ds.Name, Text: text, Configured: h.Insight.Configured()})
}
