package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"soci/internal/core"
)

type outstandingRowJSON struct {
	memberJSON
	LastPayment      *time.Time `json:"last_payment,omitempty"`
	DaysSincePayment *int       `json:"days_since_payment,omitempty"`
}

type outstandingReportJSON struct {
	Members            []outstandingRowJSON `json:"members"`
	TotalCents         int64                `json:"total_cents"`
	SelectedTotalCents int64                `json:"selected_total_cents"`
}

// handleOutstanding builds the debtor report. Query parameters:
//
//	min_amount  decimal euros, e.g. 12.50; a negative balance pasted from
//	            the report (-12.50) means the same threshold
//	min_days    whole days since the last payment
//	sort        balance | name | days
//	dir         asc | desc
//	selected    comma-separated member IDs
func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter core.OutstandingFilter

	if raw := q.Get("min_amount"); raw != "" {
		cents, err := core.ParseSignedDecimalToCents(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_amount")
			return
		}
		if cents < 0 {
			cents = -cents
		}
		filter.MinAmount = core.Money{Cents: cents}
	}

	if raw := q.Get("min_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "invalid min_days")
			return
		}
		filter.MinDaysOverdue = &days
	}

	switch q.Get("sort") {
	case "", "balance":
		filter.SortBy = core.SortByBalance
	case "name":
		filter.SortBy = core.SortByName
	case "days":
		filter.SortBy = core.SortByDays
	default:
		writeError(w, http.StatusBadRequest, "invalid sort")
		return
	}

	switch q.Get("dir") {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		writeError(w, http.StatusBadRequest, "invalid dir")
		return
	}

	if raw := q.Get("selected"); raw != "" {
		filter.Selected = make(map[int64]bool)
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "invalid selected")
				return
			}
			filter.Selected[id] = true
		}
	}

	report, err := s.members.Outstanding(r.Context(), filter, s.now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := outstandingReportJSON{
		Members:            make([]outstandingRowJSON, 0, len(report.Members)),
		TotalCents:         report.Total.Cents,
		SelectedTotalCents: report.SelectedTotal.Cents,
	}
	for _, row := range report.Members {
		out.Members = append(out.Members, outstandingRowJSON{
			memberJSON:       toMemberJSON(row.Member),
			LastPayment:      row.LastPayment,
			DaysSincePayment: row.DaysSincePayment,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type categoryCountJSON struct {
	Name      string `json:"name"`
	Members   int    `json:"members"`
	OwedCents int64  `json:"owed_cents"`
}

type overviewJSON struct {
	TotalMembers          int                 `json:"total_members"`
	ActiveMembers         int                 `json:"active_members"`
	OutstandingTotalCents int64               `json:"outstanding_total_cents"`
	ByCategory            []categoryCountJSON `json:"by_category"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.members.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := overviewJSON{
		TotalMembers:          overview.TotalMembers,
		ActiveMembers:         overview.ActiveMembers,
		OutstandingTotalCents: overview.OutstandingTotal.Cents,
		ByCategory:            make([]categoryCountJSON, 0, len(overview.ByCategory)),
	}
	for _, c := range overview.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryCountJSON{
			Name:      c.Name,
			Members:   c.Members,
			OwedCents: c.Owed.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
