// Package traceability reconstructs the production history of a serial
// number from station logs, defects, work orders and shipments.
package traceability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"pcbaerp/internal/audit"
	"pcbaerp/internal/handlers/common"
	"pcbaerp/internal/models"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// ErrUnknownSerial is returned when nothing was ever recorded for a serial.
var ErrUnknownSerial = errors.New("no records for serial number")

// Handler holds dependencies for traceability handlers.
type Handler struct {
	Logs       store.Repository[models.ProductionLog]
	Defects    store.Repository[models.DefectRecord]
	WorkOrders store.Repository[models.WorkOrder]
	Shipments  store.Repository[models.ShippingRecord]
	Audit      *audit.Logger
}

// RegisterRoutes mounts the traceability routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/traceability/{sn}", h.Trace)
	r.Get("/traceability/{sn}/export", h.Export)
}

// Lookup builds the trace for sn. Serial numbers match case-insensitively.
func (h *Handler) Lookup(ctx context.Context, sn string) (models.TraceResult, error) {
	sn = strings.ToUpper(strings.TrimSpace(sn))
	res := models.TraceResult{SN: sn, History: []models.TraceStep{}, Defects: []models.DefectRecord{}}
	if sn == "" {
		return res, fmt.Errorf("trace: %w", ErrUnknownSerial)
	}

	logs, err := h.Logs.List(ctx, sn)
	if err != nil {
		return res, err
	}
	defects, err := h.Defects.List(ctx, sn)
	if err != nil {
		return res, err
	}
	for _, d := range defects {
		if strings.EqualFold(d.SN, sn) {
			res.Defects = append(res.Defects, d)
		}
	}

	var mine []models.ProductionLog
	for _, l := range logs {
		if strings.EqualFold(l.SN, sn) {
			mine = append(mine, l)
		}
	}
	if len(mine) == 0 && len(res.Defects) == 0 {
		return res, fmt.Errorf("trace %s: %w", sn, ErrUnknownSerial)
	}
	sort.SliceStable(mine, func(i, j int) bool { return before(mine[i].Timestamp, mine[j].Timestamp) })

	for _, l := range mine {
		step := models.TraceStep{
			Step:     l.Station,
			Operator: l.Operator,
			Date:     l.Timestamp,
			Result:   strings.ToUpper(l.Status),
		}
		if l.Status == "fail" {
			step.Details = defectDetails(res.Defects, l.Timestamp)
		}
		res.History = append(res.History, step)
	}

	if len(mine) > 0 {
		res.WorkOrder = mine[len(mine)-1].WOID
	}
	if res.WorkOrder != "" {
		if wo, err := h.WorkOrders.Get(ctx, res.WorkOrder); err == nil {
			res.Customer = wo.Customer
			res.PartNumber = wo.PartNumber
		}
		if ships, err := h.Shipments.List(ctx, res.WorkOrder); err == nil {
			for _, s := range ships {
				if s.WOID == res.WorkOrder {
					res.Shipment = s.ID
					break
				}
			}
		}
	}
	return res, nil
}

// before orders timestamps chronologically, falling back to text order for
// values that do not parse.
func before(a, b string) bool {
	ta, errA := validation.ParseTimestamp(a)
	tb, errB := validation.ParseTimestamp(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}

// defectDetails describes the defects logged at the same moment as a failed
// station, e.g. "SH-01 C12".
func defectDetails(defects []models.DefectRecord, ts string) string {
	var parts []string
	for _, d := range defects {
		if d.Timestamp == ts {
			parts = append(parts, strings.TrimSpace(d.DefectCode+" "+d.Location))
		}
	}
	return strings.Join(parts, ", ")
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownSerial) {
		response.Err(w, err.Error(), http.StatusNotFound)
		return
	}
	response.FromError(w, err)
}

// Trace handles GET /api/v1/traceability/:sn.
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lookup(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		h.fail(w, err)
		return
	}
	response.JSON(w, res)
}

// Export handles GET /api/v1/traceability/:sn/export?format=csv|xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := common.ExporterFor(r.URL.Query().Get("format"))
	if err != nil {
		response.ErrCode(w, err.Error(), response.CodeUnsupported, http.StatusBadRequest)
		return
	}
	res, err := h.Lookup(r.Context(), chi.URLParam(r, "sn"))
	if err != nil {
		h.fail(w, err)
		return
	}

	headers := []string{"SN", "Work Order", "Step", "Operator", "Date", "Result", "Details"}
	rows := make([][]string, 0, len(res.History))
	for _, s := range res.History {
		rows = append(rows, []string{res.SN, res.WorkOrder, s.Step, s.Operator, s.Date, s.Result, s.Details})
	}
	var buf bytes.Buffer
	if err := exp.Write(&buf, "Trace", headers, rows); err != nil {
		response.FromError(w, err)
		return
	}
	if h.Audit != nil {
		h.Audit.LogExport(r.Context(), "Traceability", exp.Extension(), len(rows))
	}
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trace-%s.%s", res.SN, exp.Extension()))
	_, _ = buf.WriteTo(w)
}
