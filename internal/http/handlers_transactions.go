package http

import (
	"fmt"
	"net/http"
	"time"

	"dailyspend/internal/calendar"
	"dailyspend/internal/core"
)

type createTransactionRequest struct {
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
	AmountCents int64  `json:"amountCents,omitempty"`
	Category    string `json:"category"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	PostedAt    string `json:"postedAt"`
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
	Category    string `json:"category"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		PostedAt:    tx.PostedAt.UTC().Format(time.RFC3339),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID := userParam(r)

	cents, err := parseAmountCents(sanitizeInput(req.Amount), req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	// Date-only input posts at local noon of the owner's day, keeping the
	// entry unambiguously inside that day's window.
	profile, err := s.store.Profile(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	postedAt, err := calendar.Noon(sanitizeInput(req.Date), profile.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	tx := core.Transaction{
		UserID:      userID,
		Kind:        core.TransactionKind(sanitizeInput(req.Kind)),
		PostedAt:    postedAt,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.ledgerSvc.Record(r.Context(), tx)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	tx.ID = id

	s.metrics.transactionsTotal.Add(1)
	s.invalidateUser(userID)
	s.structured.LogTransactionRecorded(r.Context(), id, userID, string(tx.Kind), tx.Description, tx.Amount.Cents, tx.Category)

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	profile, err := s.store.Profile(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	cal, err := calendar.Resolve(fmt.Sprintf("%04d-%02d-01", year, month), profile.Timezone)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), userID, cal.PeriodStart, cal.PeriodEnd.Add(time.Millisecond))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	items := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":         year,
		"month":        month,
		"transactions": items,
	})
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id, ok := pathID(r.URL.Path, "/api/transactions/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	userID := userParam(r)

	if err := s.ledgerSvc.Delete(r.Context(), userID, id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	s.logger.InfoContext(r.Context(), "Transaction deleted", "id", id, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
