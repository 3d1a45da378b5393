// Package hr serves factory employees and their certifications.
package hr

import (
	"context"
	"net/http"
	"net/url"
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

// Handler holds dependencies for HR handlers.
type Handler struct {
	*common.Resource[models.Employee]
}

// Schema returns the employee form schema.
func Schema(env common.Env) form.Schema[models.Employee] {
	return form.Schema[models.Employee]{
		Module: "employee",
		NewID:  env.NextID("FE"),
		Defaults: func(now time.Time) models.Employee {
			return models.Employee{
				Department:     models.DeptProduction,
				Status:         "active",
				Certifications: []string{},
				JoinDate:       now.Format("2006-01-02"),
			}
		},
		Required: []string{"id", "name", "position"},
		Normalize: func(e *models.Employee) {
			e.Name = strings.TrimSpace(e.Name)
			e.Position = strings.TrimSpace(e.Position)
			e.Certifications = DedupCertifications(e.Certifications)
		},
		Validate: func(_ context.Context, ve *validation.ValidationErrors, e models.Employee, prev *models.Employee) {
			validation.ValidateMaxLength(ve, "name", e.Name, 255)
			validation.ValidateEnum(ve, "department", string(e.Department), validation.ValidDepartments)
			validation.ValidateEnum(ve, "status", e.Status, validation.ValidEmployeeStatuses)
			validation.ValidateDate(ve, "join_date", e.JoinDate)
			if prev != nil {
				validation.ValidateTransition(ve, "status", validation.EmployeeTransitions, prev.Status, e.Status)
			}
		},
	}
}

// DedupCertifications trims names, drops blanks and keeps the first of any
// names equal ignoring case.
func DedupCertifications(certs []string) []string {
	out := make([]string, 0, len(certs))
	seen := map[string]bool{}
	for _, c := range certs {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// New returns the HR handler writing to repo.
func New(env common.Env, repo store.Repository[models.Employee]) *Handler {
	return &Handler{Resource: common.NewResource(env, "employees", "HR", repo, Schema(env))}
}

// RegisterRoutes mounts the employee routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/{id}/certifications", h.AddCertification)
		r.Delete("/{id}/certifications/{name}", h.RemoveCertification)
	})
}

type certRequest struct {
	Name string `json:"name"`
}

// AddCertification handles POST /api/v1/employees/:id/certifications. A
// certification already held (ignoring case) is left as is.
func (h *Handler) AddCertification(w http.ResponseWriter, r *http.Request) {
	var req certRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		ve := &validation.ValidationErrors{}
		ve.Add("name", "is required")
		response.Validation(w, ve)
		return
	}
	emp, err := h.Edit(r.Context(), chi.URLParam(r, "id"), func(d *form.Draft[models.Employee]) error {
		d.Record.Certifications = append(d.Record.Certifications, name)
		return nil
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, emp)
}

// RemoveCertification handles DELETE /api/v1/employees/:id/certifications/:name.
func (h *Handler) RemoveCertification(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		response.Err(w, "invalid certification name", http.StatusBadRequest)
		return
	}
	emp, err := h.Edit(r.Context(), chi.URLParam(r, "id"), func(d *form.Draft[models.Employee]) error {
		kept := d.Record.Certifications[:0]
		for _, c := range d.Record.Certifications {
			if !strings.EqualFold(c, name) {
				kept = append(kept, c)
			}
		}
		d.Record.Certifications = kept
		return nil
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, emp)
}

// Stats summarizes headcount.
type Stats struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	ByDepartment map[string]int `json:"by_department"`
	ByStatus     map[string]int `json:"by_status"`
	// Certified counts employees holding at least one certification.
	Certified int `json:"certified"`
}

// Summarize computes Stats over emps.
func Summarize(emps []models.Employee) Stats {
	s := Stats{Total: len(emps), ByDepartment: map[string]int{}, ByStatus: map[string]int{}}
	for _, e := range emps {
		s.ByDepartment[string(e.Department)]++
		s.ByStatus[e.Status]++
		if len(e.Certifications) > 0 {
			s.Certified++
		}
	}
	s.Active = s.ByStatus["active"]
	return s
}

// Stats handles GET /api/v1/employees/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(emps))
}
