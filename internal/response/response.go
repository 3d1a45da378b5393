package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"pcbaerp/internal/form"
	"pcbaerp/internal/models"
	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

// Error codes returned in the "code" field.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeDuplicate    = "DUPLICATE_ID"
	CodeConfirm      = "CONFIRMATION_REQUIRED"
	CodeBadRequest   = "BAD_REQUEST"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnsupported  = "UNSUPPORTED"
	CodeDraftExpired = "DRAFT_NOT_FOUND"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string                       `json:"error"`
	Code   string                       `json:"code,omitempty"`
	Fields []validation.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSON writes a successful API response with the given data.
func JSON(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, models.APIResponse{Data: data})
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, models.APIResponse{Data: data})
}

// JSONMeta writes a successful list response with its total and filter.
func JSONMeta(w http.ResponseWriter, data interface{}, total int, search string) {
	writeJSON(w, http.StatusOK, models.APIResponse{
		Data: data,
		Meta: &models.Meta{Total: total, Search: search},
	})
}

// Err writes a JSON error response with the given message and HTTP status code.
func Err(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, ErrorBody{Error: msg, Code: codeFor(status)})
}

// ErrCode writes a JSON error response with an explicit code.
func ErrCode(w http.ResponseWriter, msg, code string, status int) {
	writeJSON(w, status, ErrorBody{Error: msg, Code: code})
}

// Validation writes a 422 listing every failed field.
func Validation(w http.ResponseWriter, ve *validation.ValidationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{
		Error:  "validation failed",
		Code:   CodeValidation,
		Fields: ve.Errors,
	})
}

// FromError maps domain errors onto HTTP responses: validation 422, not
// found 404, duplicate 409, bad draft input 400, anything else 500.
func FromError(w http.ResponseWriter, err error) {
	var ve *validation.ValidationErrors
	switch {
	case errors.As(err, &ve):
		Validation(w, ve)
	case errors.Is(err, form.ErrDraftNotFound):
		ErrCode(w, err.Error(), CodeDraftExpired, http.StatusNotFound)
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrInvalidValue):
		ErrCode(w, err.Error(), CodeBadRequest, http.StatusBadRequest)
	case errors.Is(err, form.ErrDraftClosed):
		ErrCode(w, err.Error(), CodeDraftExpired, http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		ErrCode(w, err.Error(), CodeNotFound, http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicateID):
		ErrCode(w, err.Error(), CodeDuplicate, http.StatusConflict)
	case errors.Is(err, store.ErrEmptyID):
		ErrCode(w, err.Error(), CodeValidation, http.StatusUnprocessableEntity)
	default:
		ErrCode(w, "internal error", CodeInternal, http.StatusInternalServerError)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeDuplicate
	case http.StatusPreconditionRequired:
		return CodeConfirm
	case http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		if status >= 500 {
			return CodeInternal
		}
		return ""
	}
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
