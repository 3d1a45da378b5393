// Package quality serves defect records, MRB dispositions and inspection
// image editing.
package quality

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/dashboard"
	"pcbaerp/internal/form"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/insight"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Handler holds dependencies for quality handlers.
type Handler struct {
	*common.Resource[models.DefectRecord]

	// Insight edits inspection images. nil disables the endpoint.
	Insight *insight.Fetcher
}

// Schema returns the defect form schema.
func Schema(env common.Env) form.Schema[models.DefectRecord] {
	return form.Schema[models.DefectRecord]{
		Module: "defect",
		NewID:  env.NextID("D"),
		Defaults: func(now time.Time) models.DefectRecord {
			return models.DefectRecord{
				Timestamp: now.Format("2006-01-02 15:04"),
				Severity:  "major",
				MRBAction: "rework",
			}
		},
		Required: []string{"id", "sn", "defect_code"},
		Normalize: func(d *models.DefectRecord) {
			d.SN = strings.ToUpper(strings.TrimSpace(d.SN))
			d.DefectCode = strings.ToUpper(strings.TrimSpace(d.DefectCode))
			d.Location = strings.ToUpper(strings.TrimSpace(d.Location))
		},
		Validate: func(_ context.Context, ve *validation.ValidationErrors, d models.DefectRecord, _ *models.DefectRecord) {
			validation.ValidateEnum(ve, "severity", d.Severity, validation.ValidDefectSeverities)
			validation.ValidateEnum(ve, "mrb_action", d.MRBAction, validation.ValidMRBActions)
			validation.ValidateTimestamp(ve, "timestamp", d.Timestamp)
			validation.ValidateMaxLength(ve, "location", d.Location, 64)
		},
	}
}

// New returns the quality handler writing to repo.
func New(env common.Env, repo store.Repository[models.DefectRecord], fetcher *insight.Fetcher) *Handler {
	return &Handler{
		Resource: common.NewResource(env, "defects", "Quality", repo, Schema(env)),
		Insight:  fetcher,
	}
}

// RegisterRoutes mounts the defect routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/inspect-image", h.InspectImage)
	})
}

// Stats summarizes defects.
type Stats struct {
	Total      int               `json:"total"`
	Critical   int               `json:"critical"`
	BySeverity map[string]int    `json:"by_severity"`
	ByMRB      map[string]int    `json:"by_mrb_action"`
	TopCodes   dashboard.Dataset `json:"top_codes"`
}

// Summarize computes Stats over defects, keeping the n most frequent codes.
func Summarize(defects []models.DefectRecord, n int) Stats {
	s := Stats{Total: len(defects), BySeverity: map[string]int{}, ByMRB: map[string]int{}}
	for _, sev := range validation.ValidDefectSeverities {
		s.BySeverity[sev] = 0
	}
	codes := dashboard.Dataset{Name: "defect_codes"}
	index := map[string]int{}
	for _, d := range defects {
		s.BySeverity[d.Severity]++
		if d.MRBAction != "" {
			s.ByMRB[d.MRBAction]++
		}
		i, ok := index[d.DefectCode]
		if !ok {
			i = len(codes.Rows)
			index[d.DefectCode] = i
			codes.Rows = append(codes.Rows, dashboard.Row{Label: d.DefectCode, Values: map[string]float64{"count": 0}})
		}
		codes.Rows[i].Values["count"]++
	}
	s.Critical = s.BySeverity["critical"]
	s.TopCodes = dashboard.TopN(codes, n, "count")
	return s
}

// Stats handles GET /api/v1/defects/stats?top=.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("top"))
	if err != nil || n <= 0 {
		n = 5
	}
	defects, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(defects, n))
}

// InspectImageRequest carries a base64 (or data URL) image and the edit to
// apply, e.g. "highlight the solder bridge near U3".
type InspectImageRequest struct {
	Image       string `json:"image"`
	MimeType    string `json:"mime_type"`
	Instruction string `json:"instruction"`
}

// InspectImageResponse holds the edited image as a data URL, or null when
// the service produced nothing.
type InspectImageResponse struct {
	Image  *string `json:"image"`
	Edited bool    `json:"edited"`
}

// InspectImage handles POST /api/v1/defects/inspect-image.
func (h *Handler) InspectImage(w http.ResponseWriter, r *http.Request) {
	if h.Insight == nil || !h.Insight.Configured() {
		response.Err(w, "image service is not configured", http.StatusServiceUnavailable)
		return
	}
	var req InspectImageRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	fallback := req.MimeType
	if fallback == "" {
		fallback = "image/png"
	}
	img, mime, err := insight.DecodeImage(req.Image, fallback)
	ve := &validation.ValidationErrors{}
	if err != nil {
		if !errors.Is(err, insight.ErrBadImage) {
			response.FromError(w, err)
			return
		}
		ve.Add("image", "must be base64 or a data URL")
	} else {
		validation.ValidateImageUpload(ve, len(img), mime)
	}
	validation.RequireField(ve, "instruction", req.Instruction)
	validation.ValidateMaxLength(ve, "instruction", req.Instruction, 1000)
	if ve.HasErrors() {
		response.Validation(w, ve)
		return
	}

	out := h.Insight.EditQualityImage(r.Context(), img, mime, req.Instruction)
	if out == nil {
		response.JSON(w, InspectImageResponse{})
		return
	}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(out)
	response.JSON(w, InspectImageResponse{Image: &url, Edited: true})
}
