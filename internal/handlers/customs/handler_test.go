package customs_test

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pcbaerp/internal/handlers/customs"
	"pcbaerp/internal/models"
	"pcbaerp/internal/testutil"
)

func TestCreateDeclaration(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/declarations", map[string]any{
		"hs_code":   " 8542.39 ",
		"origin":    "Taiwan",
		"type":      "import",
		"quantity":  "3000",
		"value_usd": "18250.50",
		"tax_rate":  "3",
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var c models.CustomsRecord
	testutil.DecodeEnvelope(t, w, &c)
	assert.Equal(t, "TK-2024-0001", c.ID)
	assert.Equal(t, "8542.39", c.HSCode)
	assert.Equal(t, "processing", c.Status)
	assert.Equal(t, 3000, c.Quantity)
	assert.True(t, decimal.RequireFromString("547.52").Equal(c.Duty()), "got %s", c.Duty())
}

func TestCreateDeclaration_Validation(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/declarations", map[string]any{
		"hs_code":  "85-42",
		"type":     "transit",
		"tax_rate": 150,
		"quantity": -2,
	})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	body := testutil.DecodeError(t, w)
	for _, field := range []string{"hs_code", "type", "tax_rate", "quantity"} {
		assert.True(t, body.HasField(field), "expected error on %s", field)
	}
}

func TestDuty(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	w := testutil.Do(h, "GET", "/api/v1/declarations/TK-24002/duty", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var d customs.DutyResult
	testutil.DecodeEnvelope(t, w, &d)
	assert.True(t, decimal.NewFromInt(2250).Equal(d.Duty), "got %s", d.Duty)
	assert.Equal(t, 5.0, d.TaxRate)

	w = testutil.Do(h, "GET", "/api/v1/declarations/TK-00000/duty", nil)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestDeclaration_ClearedIsFinal(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "PUT", "/api/v1/declarations/TK-24001", map[string]any{"status": "processing"})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	assert.True(t, testutil.DecodeError(t, w).HasField("status"))
}

func TestDeclarationStats(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/declarations/stats", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var s customs.Stats
	testutil.DecodeEnvelope(t, w, &s)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Imports)
	assert.Equal(t, 1, s.Exports)
	assert.True(t, decimal.NewFromInt(45000).Equal(s.ImportValue))
	assert.True(t, decimal.NewFromInt(12400).Equal(s.ExportValue))
	assert.True(t, decimal.NewFromInt(2250).Equal(s.DutyOwed))
	assert.Equal(t, 0, s.ByStatus["rejected"])
}

func TestSummarize_RejectedOwesNothing(t *testing.T) {
	s := customs.Summarize([]models.CustomsRecord{
		{Type: "import", Status: "rejected", ValueUSD: decimal.NewFromInt(1000), TaxRate: 10},
	})
	assert.True(t, s.DutyOwed.IsZero())
	assert.Equal(t, 1, s.ByStatus["rejected"])
}
