package http

import (
	"net/http"
	"time"

	"soci/internal/core"
)

type applicationJSON struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	CategoryID     int64     `json:"category_id"`
	JoinMonth      int       `json:"join_month"`
	QuotedFeeCents int64     `json:"quoted_fee_cents"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	MemberID       int64     `json:"member_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toApplicationJSON(a core.Application) applicationJSON {
	return applicationJSON{
		ID:             a.ID,
		FullName:       a.FullName,
		Email:          a.Email,
		CategoryID:     a.CategoryID,
		JoinMonth:      int(a.JoinMonth),
		QuotedFeeCents: a.QuotedFee.Cents,
		Status:         string(a.Status),
		Notes:          a.Notes,
		MemberID:       a.MemberID,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type submitApplicationRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	CategoryID int64  `json:"category_id"`
	JoinMonth  int    `json:"join_month"`
	Notes      string `json:"notes"`
}

// handleSubmitApplication quotes the join fee for the requested month and
// stores the application as pending.
func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := s.applications.Submit(r.Context(), core.Application{
		FullName:   sanitizeInput(req.FullName),
		Email:      sanitizeInput(req.Email),
		CategoryID: req.CategoryID,
		JoinMonth:  time.Month(req.JoinMonth),
		Notes:      sanitizeInput(req.Notes),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationJSON(*a))
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	status := core.ApplicationStatus(r.URL.Query().Get("status"))

	applications, err := s.applications.List(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]applicationJSON, 0, len(applications))
	for _, a := range applications {
		out = append(out, toApplicationJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleApproveApplication turns a pending application into a member whose
// opening balance is the quoted fee, owed in full.
func (s *Server) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := s.applications.Approve(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateMemberData()
	writeJSON(w, http.StatusCreated, toMemberJSON(*m))
}

type rejectApplicationRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req rejectApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.applications.Reject(r.Context(), id, sanitizeInput(req.Notes)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
