package accounting_test

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pcbaerp/internal/handlers/accounting"
	"pcbaerp/internal/models"
	"pcbaerp/internal/testutil"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLedgerSummary(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/transactions/summary", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var s accounting.Summary
	testutil.DecodeEnvelope(t, w, &s)
	assert.Equal(t, 3, s.Count)
	assert.True(t, dec("14500").Equal(s.Income))
	assert.True(t, dec("9650").Equal(s.Expense))
	assert.True(t, dec("4850").Equal(s.Net))
	assert.True(t, dec("-8200").Equal(s.ByCategory["material"]))
}

func TestLedgerSummary_Filtered(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/transactions/summary?search=digikey", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var s accounting.Summary
	testutil.DecodeEnvelope(t, w, &s)
	assert.Equal(t, 1, s.Count)
	assert.True(t, s.Income.IsZero())
}

func TestCreateTransaction_RoundsAmount(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/transactions", map[string]any{
		"type":        "expense",
		"category":    "salary",
		"amount":      "1234.567",
		"ref_id":      "PAY-03",
		"description": "March payroll",
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var tx models.Transaction
	testutil.DecodeEnvelope(t, w, &tx)
	assert.Equal(t, "T-2024-0001", tx.ID)
	assert.True(t, dec("1234.57").Equal(tx.Amount), "got %s", tx.Amount)
}

func TestCreateTransaction_Validation(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "POST", "/api/v1/transactions", map[string]any{
		"type":     "refund",
		"category": "misc",
		"amount":   0,
	})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)
	body := testutil.DecodeError(t, w)
	for _, field := range []string{"type", "category", "amount", "description"} {
		assert.True(t, body.HasField(field), "expected error on %s", field)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := accounting.Summarize(nil)
	assert.True(t, s.Net.IsZero())
	assert.Empty(t, s.ByCategory)
}
