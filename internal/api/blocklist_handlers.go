package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendhotline/hotline/internal/api/middleware"
	"github.com/friendhotline/hotline/internal/database/models"
	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/go-chi/chi/v5"
)

// blockListRequest is the JSON request body for blocking a caller number.
type blockListRequest struct {
	Number string `json:"number"`
}

// blockListResponse is the JSON response for a single blocklist entry.
type blockListResponse struct {
	ID           int64  `json:"id"`
	HotlineID    int64  `json:"hotline_id"`
	Number       string `json:"number"`
	PrettyNumber string `json:"pretty_number"`
	BlockedBy    string `json:"blocked_by"`
	CreatedAt    string `json:"created_at"`
}

// toBlockListResponse converts a models.BlockListEntry to the API response.
func toBlockListResponse(e *models.BlockListEntry) blockListResponse {
	return blockListResponse{
		ID:           e.ID,
		HotlineID:    e.HotlineID,
		Number:       e.Number,
		PrettyNumber: telephony.PrettyNumber(e.Number),
		BlockedBy:    e.BlockedBy,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

// handleListBlockList returns a hotline's blocked caller numbers.
func (s *Server) handleListBlockList(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	entries, err := s.blocklist.List(r.Context(), hotline.ID)
	if err != nil {
		s.logger.Error("list blocklist: failed to query", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]blockListResponse, len(entries))
	for i := range entries {
		items[i] = toBlockListResponse(&entries[i])
	}

	writeJSON(w, http.StatusOK, items)
}

// handleCreateBlockListEntry blocks a caller number on a hotline.
func (s *Server) handleCreateBlockListEntry(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	var req blockListRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
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

	already, err := s.blocklist.Exists(r.Context(), hotline.ID, number)
	if err != nil {
		s.logger.Error("block number: failed to check", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if already {
		writeError(w, http.StatusConflict, "this number is already blocked")
		return
	}

	blockedBy := ""
	if user := middleware.AdminUserFromContext(r.Context()); user != nil {
		blockedBy = user.Username
	}

	e := &models.BlockListEntry{
		HotlineID: hotline.ID,
		Number:    number,
		BlockedBy: blockedBy,
	}

	if err := s.blocklist.Create(r.Context(), e); err != nil {
		s.logger.Error("block number: failed to insert", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("caller number blocked", "entry_id", e.ID, "hotline_id", hotline.ID)

	writeJSON(w, http.StatusCreated, toBlockListResponse(e))
}

// handleDeleteBlockListEntry unblocks a caller number.
func (s *Server) handleDeleteBlockListEntry(w http.ResponseWriter, r *http.Request) {
	hotline, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid blocklist entry id")
		return
	}

	entries, err := s.blocklist.List(r.Context(), hotline.ID)
	if err != nil {
		s.logger.Error("unblock number: failed to query", "error", err, "hotline_id", hotline.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	found := false
	for _, e := range entries {
		if e.ID == entryID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "blocklist entry not found")
		return
	}

	if err := s.blocklist.Delete(r.Context(), entryID); err != nil {
		s.logger.Error("unblock number: failed to delete", "error", err, "entry_id", entryID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("caller number unblocked", "entry_id", entryID, "hotline_id", hotline.ID)

	w.WriteHeader(http.StatusNoContent)
}
