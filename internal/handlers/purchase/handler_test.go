package purchase_test

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcbaerp/internal/handlers/purchase"
	"pcbaerp/internal/models"
	"pcbaerp/internal/testutil"
)

func TestCreatePurchaseOrder_TotalFromItems(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/purchase-orders", map[string]any{
		"vendor":        "Mouser",
		"delivery_date": "2024-04-02",
		"total_amount":  1,
		"items": []map[string]any{
			{"pn": "CAP-1UF-0402", "qty": 4000, "price": "0.015"},
			{"pn": "MCU-STM32G0", "qty": 200, "price": 1.25},
		},
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var po models.PurchaseOrder
	testutil.DecodeEnvelope(t, w, &po)
	assert.Equal(t, "PO-2024-0001", po.ID)
	assert.Equal(t, "2024-03-22", po.OrderDate)
	assert.Equal(t, "draft", po.Status)
	assert.True(t, decimal.RequireFromString("310").Equal(po.TotalAmount), "got %s", po.TotalAmount)
}

func TestCreatePurchaseOrder_Validation(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/purchase-orders", map[string]any{
		"vendor":        "Mouser",
		"currency":      "EUR",
		"delivery_date": "2024-03-01",
		"items":         []map[string]any{{"pn": "", "qty": 0, "price": -1}},
	})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	body := testutil.DecodeError(t, w)
	for _, field := range []string{"currency", "delivery_date", "items[0].pn", "items[0].qty", "items[0].price"} {
		assert.True(t, body.HasField(field), "expected error on %s", field)
	}
}

func TestPurchaseOrder_StatusFlow(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	w := testutil.Do(h, "PUT", "/api/v1/purchase-orders/PO-24015", map[string]any{"status": "received"})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)

	w = testutil.Do(h, "POST", "/api/v1/purchase-orders/bulk", map[string]any{
		"ids": []string{"PO-24001"}, "action": "status", "status": "received",
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	w = testutil.Do(h, "GET", "/api/v1/purchase-orders/stats", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var s purchase.Stats
	testutil.DecodeEnvelope(t, w, &s)
	assert.Equal(t, 1, s.ByStatus["received"])
	assert.True(t, decimal.NewFromInt(10000).Equal(s.ReceivedValue["USD"]))
	assert.True(t, decimal.NewFromInt(2000).Equal(s.OpenValue["USD"]))
}

func TestSummarize_PerCurrency(t *testing.T) {
	pos := []models.PurchaseOrder{
		{Status: "sent", Currency: "USD", TotalAmount: decimal.NewFromInt(5)},
		{Status: "draft", Currency: "VND", TotalAmount: decimal.NewFromInt(1000000)},
		{Status: "cancelled", Currency: "USD", TotalAmount: decimal.NewFromInt(99)},
	}
	s := purchase.Summarize(pos)
	require.Len(t, s.OpenValue, 2)
	assert.True(t, decimal.NewFromInt(5).Equal(s.OpenValue["USD"]))
	assert.Empty(t, s.ReceivedValue)
	assert.Equal(t, 1, s.ByStatus["cancelled"])
}
