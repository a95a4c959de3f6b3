package http

import (
	"net/http"
	"time"

	"soci/internal/core"
)

type categoryJSON struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AnnualFeeCents  int64  `json:"annual_fee_cents"`
	JoiningFeeCents int64  `json:"joining_fee_cents"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.rates.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryJSON{
			ID:              c.ID,
			Name:            c.Name,
			AnnualFeeCents:  c.AnnualFee.Cents,
			JoiningFeeCents: c.JoiningFee.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type rateRowJSON struct {
	Month        int   `json:"month"`
	AmountCents  int64 `json:"amount_cents"`
	DefaultCents int64 `json:"default_cents"`
	Modified     bool  `json:"modified"`
}

// handleGetRateTable returns the twelve resolved pro-rata rates in
// membership-year order, March first.
func (s *Server) handleGetRateTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.cachedRateTable(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]rateRowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, rateRowJSON{
			Month:        int(row.Month),
			AmountCents:  row.Amount.Cents,
			DefaultCents: row.Default.Cents,
			Modified:     row.Modified,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type updateRateTableRequest struct {
	Rates []struct {
		Month       int   `json:"month"`
		AmountCents int64 `json:"amount_cents"`
	} `json:"rates"`
}

// handleUpdateRateTable replaces a category's rate overrides. The whole
// table is validated before anything is stored, so a bad row rejects the
// entire request.
func (s *Server) handleUpdateRateTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateRateTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates := make(map[time.Month]core.Money, len(req.Rates))
	for _, row := range req.Rates {
		rates[time.Month(row.Month)] = core.Money{Cents: row.AmountCents}
	}

	if err := s.rates.UpdateRateTable(r.Context(), id, rates); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateRates()

	rows, err := s.cachedRateTable(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]rateRowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, rateRowJSON{
			Month:        int(row.Month),
			AmountCents:  row.Amount.Cents,
			DefaultCents: row.Default.Cents,
			Modified:     row.Modified,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
