package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dailyspend/internal/calendar"
)

// handleDailySummary serves the daily budget summary. Responses are cached
// per user+date+anchor until the next write for that user.
func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := userParam(r)

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().UTC().Format(calendar.DateLayout)
	}

	anchorDay := 0
	if v := strings.TrimSpace(r.URL.Query().Get("anchorDay")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "anchorDay must be a number")
			return
		}
		anchorDay = parsed
	}

	key := userID + "|" + date + "|" + strconv.Itoa(anchorDay)
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.summaries.DailySummary(r.Context(), userID, date, anchorDay)
	if err != nil {
		switch {
		case isCalendarError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeStoreError(w, r, err)
		}
		return
	}

	s.metrics.summariesTotal.Add(1)
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func isCalendarError(err error) bool {
	return errors.Is(err, calendar.ErrBadDate) || errors.Is(err, calendar.ErrBadAnchorDay)
}

// handleMonthOverview serves the month dashboard aggregate.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := userParam(r)
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	key := fmt.Sprintf("%s|%04d-%02d", userID, year, month)
	if cached, found := s.overviewCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	overview, err := s.summaries.MonthOverview(r.Context(), userID, year, month)
	if err != nil {
		if isCalendarError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeStoreError(w, r, err)
		return
	}

	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, overview)
}
