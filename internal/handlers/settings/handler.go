// Package settings serves the effective configuration, integration status
// and the system activity log.
package settings

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/audit"
	"pcbaerp/internal/config"
	"pcbaerp/internal/form"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/ids"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Handler holds dependencies for settings handlers.
type Handler struct {
	// Logs serves the system log list and export. Entries are written by the
	// audit logger, never through a form.
	Logs  *common.Resource[models.SystemLog]
	Audit *audit.Logger

	// Config returns the current configuration.
	Config func() *config.Config
	// Status reports live integration state, e.g. websocket clients.
	Status func(ctx context.Context) IntegrationStatus
}

// IntegrationStatus is the runtime view of external collaborators.
type IntegrationStatus struct {
	Insight          bool           `json:"insight_configured"`
	Persistent       bool           `json:"persistent"`
	WebsocketClients int            `json:"websocket_clients"`
	Records          map[string]int `json:"records"`
}

// LogSchema is the schema behind the system log resource.
func LogSchema() form.Schema[models.SystemLog] {
	return form.Schema[models.SystemLog]{
		Module: "system log",
		NewID:  func(func(string) bool) string { return ids.UUID() },
		Defaults: func(now time.Time) models.SystemLog {
			return models.SystemLog{Timestamp: now.Format("2006-01-02 15:04"), Severity: "info"}
		},
		Required: []string{"id", "action"},
		Validate: func(_ context.Context, ve *validation.ValidationErrors, l models.SystemLog, _ *models.SystemLog) {
			validation.ValidateEnum(ve, "severity", l.Severity, validation.ValidSystemSeverities)
		},
	}
}

// New returns the settings handler.
func New(env common.Env, logs store.Repository[models.SystemLog], cfg func() *config.Config) *Handler {
	return &Handler{
		Logs:   common.NewResource(env, "system-logs", "Settings", logs, LogSchema()),
		Audit:  env.Audit,
		Config: cfg,
	}
}

// RegisterRoutes mounts the settings routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.GetSettings)
	r.Get("/system-logs", h.Logs.List)
	r.Get("/system-logs/export", h.Logs.Export)
	r.Delete("/system-logs", h.ClearLogs)
}

// View is the settings page payload. Secrets are never included.
type View struct {
	Config      *config.Config    `json:"config"`
	Integration IntegrationStatus `json:"integration"`
}

// GetSettings handles GET /api/v1/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	var v View
	if h.Config != nil {
		cfg := *h.Config()
		v.Config = &cfg
		v.Integration.Insight = cfg.InsightConfigured()
		v.Integration.Persistent = cfg.Store.DBPath != ""
	}
	if h.Status != nil {
		v.Integration = h.Status(r.Context())
	}
	response.JSON(w, v)
}

// ClearLogs handles DELETE /api/v1/system-logs?confirm=true. The wipe itself
// is recorded as the first entry of the new log.
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if !common.Confirmed(r) {
		common.RequireConfirmation(w, "clear the system log")
		return
	}
	if err := h.Logs.Repo().Clear(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}
	if h.Audit != nil {
		h.Audit.Record(r.Context(), audit.ActionClear, "Settings", "system logs", "warning")
	}
	response.JSON(w, map[string]bool{"cleared": true})
}
