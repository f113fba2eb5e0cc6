package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
	applog "dailyspend/internal/log"
)

// errorBody is the uniform error payload: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeStoreError maps storage failures: a missing row is the caller's
// problem, anything else means the backend is unavailable.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Storage operation failed",
		applog.FieldError, err,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusServiceUnavailable, "storage unavailable")
}

var validationErrs = []error{
	core.ErrInvalidKind,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidFrequency,
	core.ErrInvalidAnchor,
	core.ErrEmptyDescription,
	core.ErrEmptyCategory,
	core.ErrEmptyUserID,
}

func isValidationError(err error) bool {
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// userParam resolves the user the request acts on. Single-tenant deployments
// never send it and get the default user.
func userParam(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("user")); u != "" {
		return u
	}
	return core.DefaultUserID
}

// parseYearMonth extracts year and month from query parameters, defaulting
// to the current UTC month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now().UTC()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}

// pathID extracts the numeric tail of a path like /api/transactions/42.
func pathID(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeBody unmarshals a JSON request body into dst with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseAmountCents accepts either a decimal string amount or explicit cents;
// exactly one must be provided.
func parseAmountCents(amount string, amountCents int64) (int64, error) {
	if amount != "" {
		return core.ParseDecimalToCents(amount)
	}
	if amountCents <= 0 {
		return 0, core.ErrInvalidAmount
	}
	return amountCents, nil
}
