package http

import (
	"net/http"
	"time"

	"dailyspend/internal/core"
)

type setGoalRequest struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Amount      string `json:"amount,omitempty"`
	AmountCents int64  `json:"amountCents,omitempty"`
}

type goalResponse struct {
	Year        int   `json:"year"`
	Month       int   `json:"month"`
	AmountCents int64 `json:"amountCents"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetGoal(w, r)
	case http.MethodPut, http.MethodPost:
		s.handleSetGoal(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	// Months without a goal read as zero
	cents, err := s.store.SavingGoal(r.Context(), userID, year, month)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Year: year, Month: month, AmountCents: cents})
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 1970 {
		writeError(w, http.StatusUnprocessableEntity, "invalid year or month")
		return
	}

	cents, err := parseAmountCents(sanitizeInput(req.Amount), req.AmountCents)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	userID := userParam(r)
	if err := s.store.SetSavingGoal(r.Context(), userID, req.Year, req.Month, cents); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	s.logger.InfoContext(r.Context(), "Saving goal updated",
		"user_id", userID,
		"year", req.Year,
		"month", req.Month,
		"amount_cents", cents)
	writeJSON(w, http.StatusOK, goalResponse{Year: req.Year, Month: req.Month, AmountCents: cents})
}

type profileRequest struct {
	Timezone       string `json:"timezone"`
	CycleAnchorDay int    `json:"cycleAnchorDay"`
}

type profileResponse struct {
	UserID         string `json:"userId"`
	Timezone       string `json:"timezone"`
	CycleAnchorDay int    `json:"cycleAnchorDay"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetProfile(w, r)
	case http.MethodPut, http.MethodPost:
		s.handleSaveProfile(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := userParam(r)
	profile, err := s.store.Profile(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		UserID:         profile.UserID,
		Timezone:       profile.Timezone,
		CycleAnchorDay: profile.CycleAnchorDay,
	})
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := core.Profile{
		UserID:         userParam(r),
		Timezone:       sanitizeInput(req.Timezone),
		CycleAnchorDay: req.CycleAnchorDay,
	}
	if profile.Timezone == "" {
		profile.Timezone = "UTC"
	}
	if err := profile.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// Reject zones the runtime cannot resolve instead of silently falling
	// back on every later read.
	if _, err := time.LoadLocation(profile.Timezone); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown timezone")
		return
	}

	if err := s.store.SaveProfile(r.Context(), profile); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.invalidateUser(profile.UserID)
	s.logger.InfoContext(r.Context(), "Profile updated",
		"user_id", profile.UserID,
		"timezone", profile.Timezone,
		"cycle_anchor_day", profile.CycleAnchorDay)
	writeJSON(w, http.StatusOK, profileResponse{
		UserID:         profile.UserID,
		Timezone:       profile.Timezone,
		CycleAnchorDay: profile.CycleAnchorDay,
	})
}
