package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return ve != nil && len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Err returns ve as an error when it holds at least one entry, nil otherwise.
func (ve *ValidationErrors) Err() error {
	if !ve.HasErrors() {
		return nil
	}
	return ve
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidateMonth checks a field is a valid year-month (YYYY-MM).
func ValidateMonth(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01", value); err != nil {
		ve.Add(field, "must be a valid month (YYYY-MM)")
	}
}

// TimestampLayouts are the accepted timestamp formats, most specific first.
var TimestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// ParseTimestamp parses value with the first matching layout in TimestampLayouts.
func ParseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range TimestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidateTimestamp checks a field is a timestamp in one of TimestampLayouts.
func ValidateTimestamp(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := ParseTimestamp(value); err != nil {
		ve.Add(field, "must be a valid timestamp (YYYY-MM-DD HH:MM or RFC 3339)")
	}
}

// ValidateDateOrder checks that the date in field is not before the date in
// earlierField. Unparseable or empty values are left to ValidateDate.
func ValidateDateOrder(ve *ValidationErrors, field, value, earlierField, earlier string) {
	if value == "" || earlier == "" {
		return
	}
	v, err1 := time.Parse("2006-01-02", value)
	e, err2 := time.Parse("2006-01-02", earlier)
	if err1 != nil || err2 != nil {
		return
	}
	if v.Before(e) {
		ve.Add(field, fmt.Sprintf("must not be before %s (%s)", earlierField, earlier))
	}
}

// ValidatePositiveInt checks a field is > 0.
func ValidatePositiveInt(ve *ValidationErrors, field string, value int) {
	if value <= 0 {
		ve.Add(field, "must be a positive integer")
	}
}

// ValidateNonNegativeInt checks a field is >= 0.
func ValidateNonNegativeInt(ve *ValidationErrors, field string, value int) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateNonNegativeFloat checks a field is >= 0.
func ValidateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	if value < 0 || math.IsNaN(value) {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateFloatRange checks a field is within a specified range.
func ValidateFloatRange(ve *ValidationErrors, field string, value, min, max float64) {
	if value < min || value > max || math.IsNaN(value) {
		ve.Add(field, fmt.Sprintf("must be between %.2f and %.2f", min, max))
	}
}

// ValidatePositiveDecimal checks a monetary field is > 0.
func ValidatePositiveDecimal(ve *ValidationErrors, field string, value decimal.Decimal) {
	if !value.IsPositive() {
		ve.Add(field, "must be a positive amount")
	}
}

// ValidateNonNegativeDecimal checks a monetary field is >= 0.
func ValidateNonNegativeDecimal(ve *ValidationErrors, field string, value decimal.Decimal) {
	if value.IsNegative() {
		ve.Add(field, "must be non-negative")
	}
}

// Maximum value constants to prevent overflow and ensure reasonable limits.
const (
	MaxQuantity     = 10000000
	MaxStringLength = 10000
)

// ValidateMaxQuantity checks quantity doesn't exceed reasonable maximum.
func ValidateMaxQuantity(ve *ValidationErrors, field string, value int) {
	if value > MaxQuantity {
		ve.Add(field, fmt.Sprintf("exceeds maximum allowed quantity of %d", MaxQuantity))
	}
}

// ValidateMaxLength checks string doesn't exceed max length.
func ValidateMaxLength(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// ValidateReference checks that a referenced record exists. exists is
// usually a repository lookup on the referenced collection.
func ValidateReference(ve *ValidationErrors, field, collection, id string, exists func(string) bool) {
	if id == "" || exists == nil {
		return
	}
	if !exists(id) {
		ve.Add(field, fmt.Sprintf("references non-existent %s: %s", collection, id))
	}
}

// ValidateTransition checks whether moving from current to target is allowed
// by the transition map. Keeping the same state is always allowed, as is any
// target when current is empty (a brand-new record).
func ValidateTransition(ve *ValidationErrors, field string, transitions map[string][]string, current, target string) {
	if current == "" || current == target {
		return
	}
	allowed, ok := transitions[current]
	if !ok {
		ve.Add(field, fmt.Sprintf("unknown current state: %s", current))
		return
	}
	for _, s := range allowed {
		if s == target {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("transition from %q to %q is not allowed", current, target))
}

// PartNumberPattern matches valid part numbers (letters, numbers, hyphens).
var PartNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_.&/]+$`)

// ValidatePartNumber validates a part number field.
func ValidatePartNumber(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if !PartNumberPattern.MatchString(value) {
		ve.Add(field, "must contain only letters, numbers, hyphens, underscores, and dots")
	}
}

// HSCodePattern matches Harmonized System codes such as 8534.00.90.
var HSCodePattern = regexp.MustCompile(`^\d{4}(\.\d{2}){0,3}$`)

// ValidateHSCode validates a tariff classification code.
func ValidateHSCode(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if !HSCodePattern.MatchString(value) {
		ve.Add(field, "must be an HS code like 8534.00.90")
	}
}

// Image upload limits for inspection photos.
const (
	MaxImageSize = 10 * 1024 * 1024
)

// AllowedImageTypes is the whitelist of inspection image MIME types.
var AllowedImageTypes = []string{"image/png", "image/jpeg", "image/webp"}

// ValidateImageUpload validates an inspection image's size and type.
func ValidateImageUpload(ve *ValidationErrors, size int, contentType string) {
	if size == 0 {
		ve.Add("image", "cannot be empty (0 bytes)")
		return
	}
	if size > MaxImageSize {
		ve.Add("image", fmt.Sprintf("exceeds maximum size of %d MB", MaxImageSize/(1024*1024)))
	}
	ValidateEnum(ve, "mime_type", contentType, AllowedImageTypes)
}
