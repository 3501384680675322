package http

import (
	"net/http"
	"strconv"

	"society/internal/core"
	"society/internal/log"
)

type PendingResponse struct {
	Period       string              `json:"period"`
	Flats        []core.PendingEntry `json:"flats"`
	TotalPending core.Money          `json:"total_pending"`
}

// handleAnalytics returns the monthly matrix, rolling pending map and yearly
// roll-up of ?year=, defaulting to the current year.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	year, err := queryInt(r.URL.Query(), "year", s.now().Year())
	if err != nil {
		return err
	}
	a, err := s.svc.Analytics.Analytics(ctx, year)
	if err != nil {
		return err
	}
	log.FromContext(ctx).WithComponent(log.ComponentAnalytics).DebugContext(ctx, "Analytics served",
		log.FieldYear, year,
		"pending_months", len(a.PendingFlatsByMonth))
	writeJSON(w, http.StatusOK, a)
	return nil
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) error {
	summary, err := s.svc.Analytics.Summary(r.Context())
	if err != nil {
		return err
	}
	summary.Flats = orEmpty(summary.Flats)
	writeJSON(w, http.StatusOK, summary)
	return nil
}

// handlePending lists the flats with dues outstanding for one billing period.
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) error {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		return err
	}
	period := core.Period{Year: p.Year, Month: p.Month}
	entries, err := s.svc.Dues.Pending(r.Context(), period)
	if err != nil {
		return err
	}
	var total core.Money
	for _, e := range entries {
		total = total.Add(e.PendingAmount)
	}
	writeJSON(w, http.StatusOK, PendingResponse{Period: period.Key(), Flats: orEmpty(entries), TotalPending: total})
	return nil
}

// handleMonthlySummary serves /api/reports/summary/{year}/{month}. Month 0
// summarises the whole year.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) error {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return core.NewValidationError("year", "must be an integer")
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.NewValidationError("month", "must be an integer")
	}
	summary, err := s.svc.Aggregator.Summary(r.Context(), year, month)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}
