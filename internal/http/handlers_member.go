package http

import (
	"net/http"
	"time"

	"soci/internal/core"
)

type memberJSON struct {
	ID           int64     `json:"id"`
	MemberNumber string    `json:"member_number"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	BalanceCents int64     `json:"balance_cents"`
	CategoryID   int64     `json:"category_id"`
	JoinedAt     time.Time `json:"joined_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMemberJSON(m core.Member) memberJSON {
	return memberJSON{
		ID:           m.ID,
		MemberNumber: m.MemberNumber,
		FullName:     m.FullName,
		Email:        m.Email,
		Status:       string(m.Status),
		BalanceCents: m.Balance.Cents,
		CategoryID:   m.CategoryID,
		JoinedAt:     m.JoinedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	members, err := s.cachedMembers(r.Context(), includeInactive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]memberJSON, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type createMemberRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	CategoryID int64  `json:"category_id"`
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := s.members.CreateMember(r.Context(), core.Member{
		FullName:   sanitizeInput(req.FullName),
		Email:      sanitizeInput(req.Email),
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateMemberData()
	writeJSON(w, http.StatusCreated, toMemberJSON(*m))
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := s.members.GetMember(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberJSON(*m))
}

type updateMemberRequest struct {
	FullName   *string `json:"full_name"`
	Email      *string `json:"email"`
	Status     *string `json:"status"`
	CategoryID *int64  `json:"category_id"`
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := s.members.GetMember(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if req.FullName != nil {
		m.FullName = sanitizeInput(*req.FullName)
	}
	if req.Email != nil {
		m.Email = sanitizeInput(*req.Email)
	}
	if req.Status != nil {
		m.Status = core.MemberStatus(*req.Status)
	}
	if req.CategoryID != nil {
		m.CategoryID = *req.CategoryID
	}

	updated, err := s.members.UpdateMember(r.Context(), *m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateMemberData()
	writeJSON(w, http.StatusOK, toMemberJSON(*updated))
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.members.DeactivateMember(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateMemberData()
	w.WriteHeader(http.StatusNoContent)
}

type paymentJSON struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	AmountCents   int64     `json:"amount_cents"`
	PaidAt        time.Time `json:"paid_at"`
	ReceiptNumber string    `json:"receipt_number"`
}

func toPaymentJSON(p core.Payment) paymentJSON {
	return paymentJSON{
		ID:            p.ID,
		MemberID:      p.MemberID,
		AmountCents:   p.Amount.Cents,
		PaidAt:        p.PaidAt,
		ReceiptNumber: p.ReceiptNumber,
	}
}

func (s *Server) handleListMemberPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payments, err := s.cachedMemberPayments(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]paymentJSON, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type recordPaymentRequest struct {
	MemberID    int64      `json:"member_id"`
	AmountCents int64      `json:"amount_cents"`
	PaidAt      *time.Time `json:"paid_at"`
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	p, err := s.members.RecordPayment(r.Context(), req.MemberID, core.Money{Cents: req.AmountCents}, paidAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateMemberData()
	writeJSON(w, http.StatusCreated, toPaymentJSON(*p))
}
