package http

import (
	"net/http"
	"time"

	"dailyspend/internal/calendar"
	"dailyspend/internal/core"
)

type createRecurringRequest struct {
	Kind        string `json:"kind"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
	AmountCents int64  `json:"amountCents,omitempty"`
	Category    string `json:"category"`
}

type recurringResponse struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
	Category    string `json:"category"`
}

func toRecurringResponse(rt core.RecurringTransaction) recurringResponse {
	resp := recurringResponse{
		ID:          rt.ID,
		Kind:        string(rt.Kind),
		StartDate:   rt.StartDate.Format(calendar.DateLayout),
		Frequency:   string(rt.Every),
		Description: rt.Description,
		AmountCents: rt.Amount.Cents,
		Category:    rt.Category,
	}
	if !rt.EndDate.IsZero() {
		resp.EndDate = rt.EndDate.Format(calendar.DateLayout)
	}
	return resp
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRecurring(w, r)
	case http.MethodGet:
		s.handleListRecurring(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func parseCivilDate(raw string) (core.Date, error) {
	t, err := time.Parse(calendar.DateLayout, raw)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := parseAmountCents(sanitizeInput(req.Amount), req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	startDate, err := parseCivilDate(sanitizeInput(req.StartDate))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate, expected YYYY-MM-DD")
		return
	}
	var endDate core.Date
	if raw := sanitizeInput(req.EndDate); raw != "" {
		endDate, err = parseCivilDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate, expected YYYY-MM-DD")
			return
		}
	}

	rt := core.RecurringTransaction{
		UserID:      userParam(r),
		Kind:        core.TransactionKind(sanitizeInput(req.Kind)),
		StartDate:   startDate,
		EndDate:     endDate,
		Every:       core.Frequency(sanitizeInput(req.Frequency)),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
	}
	if err := rt.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AppendRecurring(r.Context(), rt)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	rt.ID = id

	s.logger.InfoContext(r.Context(), "Recurring template created",
		"id", id,
		"user_id", rt.UserID,
		"frequency", rt.Every,
		"amount_cents", rt.Amount.Cents)
	writeJSON(w, http.StatusCreated, toRecurringResponse(rt))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)

	templates, err := s.store.ActiveRecurring(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	items := make([]recurringResponse, 0)
	for _, rt := range templates {
		if rt.UserID != userID {
			continue
		}
		items = append(items, toRecurringResponse(rt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": items})
}

func (s *Server) handleRecurringByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, ok := pathID(r.URL.Path, "/api/recurring/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid recurring id")
		return
	}
	userID := userParam(r)

	if err := s.store.DeactivateRecurring(r.Context(), userID, id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Recurring template deactivated", "id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
