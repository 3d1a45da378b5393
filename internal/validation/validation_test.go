package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidationErrors_Empty(t *testing.T) {
	var ve *ValidationErrors
	if ve.HasErrors() {
		t.Error("nil ValidationErrors should report no errors")
	}
	ve = &ValidationErrors{}
	if ve.Err() != nil {
		t.Error("Expected nil Err for empty errors")
	}
	ve.Add("customer", "is required")
	ve.Add("quantity", "must be a positive integer")
	if ve.Err() == nil {
		t.Fatal("Expected non-nil Err")
	}
	if got := ve.Error(); got != "customer: is required; quantity: must be a positive integer" {
		t.Errorf("Unexpected message: %s", got)
	}
}

func TestRequireField(t *testing.T) {
	ve := &ValidationErrors{}
	RequireField(ve, "customer", "   ")
	RequireField(ve, "part_number", "PCBA-A12-PRO")
	if len(ve.Errors) != 1 || ve.Errors[0].Field != "customer" {
		t.Errorf("Expected one customer error, got %+v", ve.Errors)
	}
}

func TestValidateEnum(t *testing.T) {
	ve := &ValidationErrors{}
	ValidateEnum(ve, "status", "", ValidWOStatuses)
	ValidateEnum(ve, "status", "released", ValidWOStatuses)
	if ve.HasErrors() {
		t.Fatalf("Unexpected errors: %v", ve)
	}
	ValidateEnum(ve, "status", "bogus", ValidWOStatuses)
	if !ve.HasErrors() || !strings.Contains(ve.Errors[0].Message, "created") {
		t.Errorf("Expected enum error listing allowed values, got %+v", ve.Errors)
	}
}

func TestDatesAndTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		check func(ve *ValidationErrors)
		bad   bool
	}{
		{"valid date", func(ve *ValidationErrors) { ValidateDate(ve, "d", "2024-03-15") }, false},
		{"bad date", func(ve *ValidationErrors) { ValidateDate(ve, "d", "15/03/2024") }, true},
		{"valid month", func(ve *ValidationErrors) { ValidateMonth(ve, "m", "2025-06") }, false},
		{"bad month", func(ve *ValidationErrors) { ValidateMonth(ve, "m", "2025-13") }, true},
		{"short timestamp", func(ve *ValidationErrors) { ValidateTimestamp(ve, "ts", "2024-03-20 08:30") }, false},
		{"rfc3339", func(ve *ValidationErrors) { ValidateTimestamp(ve, "ts", "2024-03-20T08:30:00Z") }, false},
		{"bad timestamp", func(ve *ValidationErrors) { ValidateTimestamp(ve, "ts", "yesterday") }, true},
		{"order ok", func(ve *ValidationErrors) { ValidateDateOrder(ve, "due", "2024-04-01", "created", "2024-03-01") }, false},
		{"order same day", func(ve *ValidationErrors) { ValidateDateOrder(ve, "due", "2024-03-01", "created", "2024-03-01") }, false},
		{"order reversed", func(ve *ValidationErrors) { ValidateDateOrder(ve, "due", "2024-02-01", "created", "2024-03-01") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := &ValidationErrors{}
			tt.check(ve)
			if ve.HasErrors() != tt.bad {
				t.Errorf("Expected errors=%v, got %v", tt.bad, ve.Errors)
			}
		})
	}
}

func TestNumericChecks(t *testing.T) {
	ve := &ValidationErrors{}
	ValidatePositiveInt(ve, "qty", 0)
	ValidateNonNegativeInt(ve, "qty", -1)
	ValidateNonNegativeFloat(ve, "weight", math.NaN())
	ValidateFloatRange(ve, "tax_rate", 101, 0, 100)
	ValidatePositiveDecimal(ve, "amount", decimal.Zero)
	ValidateNonNegativeDecimal(ve, "total", decimal.NewFromInt(-5))
	ValidateMaxQuantity(ve, "qty", MaxQuantity+1)
	if len(ve.Errors) != 7 {
		t.Errorf("Expected 7 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}

	ok := &ValidationErrors{}
	ValidatePositiveInt(ok, "qty", 500)
	ValidateFloatRange(ok, "tax_rate", 5, 0, 100)
	ValidatePositiveDecimal(ok, "amount", decimal.RequireFromString("14500"))
	ValidateNonNegativeDecimal(ok, "total", decimal.Zero)
	if ok.HasErrors() {
		t.Errorf("Unexpected errors: %v", ok.Errors)
	}
}

func TestValidateReference(t *testing.T) {
	exists := func(id string) bool { return id == "WO-24001" }
	ve := &ValidationErrors{}
	ValidateReference(ve, "wo_id", "work order", "WO-24001", exists)
	ValidateReference(ve, "wo_id", "work order", "", exists)
	if ve.HasErrors() {
		t.Fatalf("Unexpected errors: %v", ve.Errors)
	}
	ValidateReference(ve, "wo_id", "work order", "WO-99999", exists)
	if !ve.HasErrors() {
		t.Error("Expected reference error")
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{"", "completed", true},
		{"created", "created", true},
		{"created", "released", true},
		{"released", "in_production", true},
		{"in_production", "completed", true},
		{"completed", "closed", true},
		{"completed", "created", false},
		{"closed", "released", false},
		{"in_production", "closed", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			ve := &ValidationErrors{}
			ValidateTransition(ve, "status", WOTransitions, tt.from, tt.to)
			if ve.HasErrors() == tt.ok {
				t.Errorf("Expected ok=%v, got errors %v", tt.ok, ve.Errors)
			}
		})
	}
}

func TestPatterns(t *testing.T) {
	ve := &ValidationErrors{}
	ValidatePartNumber(ve, "pn", "PCBA-A12-PRO")
	ValidateHSCode(ve, "hs_code", "8534.00.90")
	ValidateHSCode(ve, "hs_code", "8542")
	if ve.HasErrors() {
		t.Fatalf("Unexpected errors: %v", ve.Errors)
	}
	ValidatePartNumber(ve, "pn", "-bad pn")
	ValidateHSCode(ve, "hs_code", "85.34")
	if len(ve.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %v", ve.Errors)
	}
}

func TestValidateImageUpload(t *testing.T) {
	ve := &ValidationErrors{}
	ValidateImageUpload(ve, 1024, "image/png")
	if ve.HasErrors() {
		t.Fatalf("Unexpected errors: %v", ve.Errors)
	}
	ValidateImageUpload(ve, 0, "image/png")
	ValidateImageUpload(ve, MaxImageSize+1, "application/pdf")
	if len(ve.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %v", ve.Errors)
	}
}
