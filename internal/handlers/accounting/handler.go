// Package accounting serves income and expense transactions.
package accounting

import (
	"context"
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

// Handler holds dependencies for accounting handlers.
type Handler struct {
	*common.Resource[models.Transaction]
}

// Schema returns the transaction form schema. ref_id is a free reference:
// it may name a PO, a work order, an invoice or a utility bill.
func Schema(env common.Env) form.Schema[models.Transaction] {
	return form.Schema[models.Transaction]{
		Module: "transaction",
		NewID:  env.NextID("T"),
		Defaults: func(now time.Time) models.Transaction {
			return models.Transaction{Date: now.Format("2006-01-02"), Type: "income", Category: "sales"}
		},
		Required: []string{"id", "description"},
		Normalize: func(t *models.Transaction) {
			t.Description = strings.TrimSpace(t.Description)
			t.RefID = strings.TrimSpace(t.RefID)
			t.Amount = t.Amount.Round(2)
		},
		Validate: func(_ context.Context, ve *validation.ValidationErrors, t models.Transaction, _ *models.Transaction) {
			validation.ValidatePositiveDecimal(ve, "amount", t.Amount)
			validation.ValidateEnum(ve, "type", t.Type, validation.ValidTxTypes)
			validation.ValidateEnum(ve, "category", t.Category, validation.ValidTxCategories)
			validation.ValidateDate(ve, "date", t.Date)
			validation.ValidateMaxLength(ve, "description", t.Description, 1000)
		},
	}
}

// New returns the accounting handler writing to repo.
func New(env common.Env, repo store.Repository[models.Transaction]) *Handler {
	return &Handler{Resource: common.NewResource(env, "transactions", "Accounting", repo, Schema(env))}
}

// RegisterRoutes mounts the transaction routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.Routes(r, func(r chi.Router) {
		r.Get("/summary", h.Summary)
	})
}

// Summary is the ledger overview.
type Summary struct {
	Income     decimal.Decimal            `json:"income"`
	Expense    decimal.Decimal            `json:"expense"`
	Net        decimal.Decimal            `json:"net"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	Count      int                        `json:"count"`
}

// Summarize totals txs. Category totals are signed: expenses count negative.
func Summarize(txs []models.Transaction) Summary {
	s := Summary{ByCategory: map[string]decimal.Decimal{}, Count: len(txs)}
	for _, t := range txs {
		switch t.Type {
		case "income":
			s.Income = s.Income.Add(t.Amount)
			s.ByCategory[t.Category] = s.ByCategory[t.Category].Add(t.Amount)
		case "expense":
			s.Expense = s.Expense.Add(t.Amount)
			s.ByCategory[t.Category] = s.ByCategory[t.Category].Sub(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// Summary handles GET /api/v1/transactions/summary?search=.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Repo().List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.JSON(w, Summarize(txs))
}
