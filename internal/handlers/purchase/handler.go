// Package purchase serves purchase orders.
package purchase

import (
	"context"
	"fmt"
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

// Handler holds dependencies for purchase handlers.
type Handler struct {
	*common.Resource[models.PurchaseOrder]
}

// Schema returns the purchase order form schema.
func Schema(env common.Env) form.Schema[models.PurchaseOrder] {
	return form.Schema[models.PurchaseOrder]{
		Module: "purchase order",
		NewID:  env.NextID("PO"),
		Defaults: func(now time.Time) models.PurchaseOrder {
			return models.PurchaseOrder{
				OrderDate: now.Format("2006-01-02"),
				Currency:  "USD",
				Status:    "draft",
				Items:     []models.POItem{},
			}
		},
		Required:  []string{"id", "vendor"},
		Normalize: normalize,
		Validate:  validate,
	}
}

// normalize recomputes the order total from its lines when it has any.
func normalize(po *models.PurchaseOrder) {
	po.Vendor = strings.TrimSpace(po.Vendor)
	if po.Items == nil {
		po.Items = []models.POItem{}
	}
	if len(po.Items) > 0 {
		po.TotalAmount = po.ItemsTotal()
	}
}

func validate(_ context.Context, ve *validation.ValidationErrors, po models.PurchaseOrder, prev *models.PurchaseOrder) {
	validation.ValidateMaxLength(ve, "vendor", po.Vendor, 255)
	validation.ValidateEnum(ve, "currency", po.Currency, validation.ValidCurrencies)
	validation.ValidateEnum(ve, "status", po.Status, validation.ValidPOStatuses)
	validation.ValidateDate(ve, "order_date", po.OrderDate)
	validation.ValidateDate(ve, "delivery_date", po.DeliveryDate)
	validation.ValidateDateOrder(ve, "delivery_date", po.DeliveryDate, "order_date", po.OrderDate)
	validation.ValidateNonNegativeDecimal(ve, "total_amount", po.TotalAmount)
	for i, it := range po.Items {
		field := fmt.Sprintf("items[%d]", i)
		validation.RequireField(ve, field+".pn", it.PN)
		validation.ValidatePartNumber(ve, field+".pn", it.PN)
		validation.ValidatePositiveInt(ve, field+".qty", it.Qty)
		validation.ValidateMaxQuantity(ve, field+".qty", it.Qty)
		validation.ValidateNonNegativeDecimal(ve, field+".price", it.Price)
	}
	if prev != nil {
		validation.ValidateTransition(ve, "status", validation.POTransitions, prev.Status, po.Status)
	}
}

// New returns the purchase handler writing to repo.
func New(env common.Env, repo store.Repository[models.PurchaseOrder]) *Handler {
	return &Handler{Resource: common.NewResource(env, "purchase-orders", "Purchase", repo, Schema(env))}
}

// RegisterRoutes mounts the purchase order routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/stats", h.Stats)
	})
}

// Stats summarizes purchase orders.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	// OpenValue sums draft and sent orders per currency.
	OpenValue map[string]decimal.Decimal `json:"open_value"`
	// ReceivedValue sums received orders per currency.
	ReceivedValue map[string]decimal.Decimal `json:"received_value"`
}

// Summarize computes Stats over pos.
func Summarize(pos []models.PurchaseOrder) Stats {
	s := Stats{
		Total:         len(pos),
		ByStatus:      map[string]int{},
		OpenValue:     map[string]decimal.Decimal{},
		ReceivedValue: map[string]decimal.Decimal{},
	}
	for _, st := range validation.ValidPOStatuses {
		s.ByStatus[st] = 0
	}
	for _, po := range pos {
		s.ByStatus[po.Status]++
		switch po.Status {
		case "draft", "sent":
			s.OpenValue[po.Currency] = s.OpenValue[po.Currency].Add(po.TotalAmount)
		case "received":
			s.ReceivedValue[po.Currency] = s.ReceivedValue[po.Currency].Add(po.TotalAmount)
		}
	}
	return s
}

// Stats handles GET /api/v1/purchase-orders/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Repo().List(r.Context(), "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(pos))
}
