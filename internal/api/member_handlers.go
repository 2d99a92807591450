package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendhotline/hotline/internal/database/models"
	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/go-chi/chi/v5"
)

// memberRequest is the JSON request body for adding a member to a hotline.
type memberRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// memberResponse is the JSON response for a single member.
type memberResponse struct {
	ID           int64  `json:"id"`
	HotlineID    int64  `json:"hotline_id"`
	Name         string `json:"name"`
	Number       string `json:"number"`
	PrettyNumber string `json:"pretty_number"`
	Verified     bool   `json:"verified"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// toMemberResponse converts a models.Member to the API response.
func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		ID:           m.ID,
		HotlineID:    m.HotlineID,
		Name:         m.Name,
		Number:       m.Number,
		PrettyNumber: telephony.PrettyNumber(m.Number),
		Verified:     m.Verified,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
	}
}

// handleListMembers returns a hotline's members in the order they were added,
// which is also the order they are rung.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	members, err := s.members.List(r.Context(), hotline.ID)
	if err != nil {
		s.logger.Error("list members: failed to query", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]memberResponse, len(members))
	for i := range members {
		items[i] = toMemberResponse(&members[i])
	}

	writeJSON(w, http.StatusOK, items)
}

// handleCreateMember adds an unverified member and kicks off the SMS
// verification handshake. The member can't be dialed until they reply.
func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if msg := validateRequiredStringLen("name", req.Name, maxNameLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateNoControlChars("name", req.Name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateRequiredStringLen("number", req.Number, maxNumberLen); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	number, err := telephony.NormalizeNumber(req.Number, hotline.Country)
	if err != nil {
		writeError(w, http.StatusBadRequest, "number is not a valid phone number")
		return
	}

	existing, err := s.members.GetByNumber(r.Context(), hotline.ID, number)
	if err != nil {
		s.logger.Error("create member: failed to check number", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "this number already belongs to a member of this hotline")
		return
	}

	m := &models.Member{
		HotlineID: hotline.ID,
		Name:      req.Name,
		Number:    number,
	}

	if err := s.members.Create(r.Context(), m); err != nil {
		s.logger.Error("create member: failed to insert", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	created, err := s.members.GetByID(r.Context(), m.ID)
	if err != nil || created == nil {
		s.logger.Error("create member: failed to re-fetch", "error", err, "member_id", m.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The member record exists either way; a failed text just means the
	// organizer re-adds or the member asks again.
	if err := s.verification.StartMemberVerification(r.Context(), hotline, created); err != nil {
		s.logger.Error("create member: failed to start verification",
			"error", err,
			"member_id", created.ID,
		)
	}

	s.logger.Info("member created", "member_id", created.ID, "hotline_id", hotline.ID)

	writeJSON(w, http.StatusCreated, toMemberResponse(created))
}

// handleDeleteMember removes a member from a hotline.
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	member, err := s.members.GetByID(r.Context(), memberID)
	if err != nil {
		s.logger.Error("delete member: failed to query", "error", err, "member_id", memberID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if member == nil || member.HotlineID != hotline.ID {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := s.members.Delete(r.Context(), memberID); err != nil {
		s.logger.Error("delete member: failed to delete", "error", err, "member_id", memberID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("member deleted", "member_id", memberID, "hotline_id", hotline.ID)

	w.WriteHeader(http.StatusNoContent)
}
