package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendhotline/hotline/internal/database/models"
	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/go-chi/chi/v5"
)

// hotlineRequest is the JSON request body for creating/updating a hotline.
type hotlineRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	PrimaryNumber string `json:"primary_number"`
	Country       string `json:"country"`
	VoiceGreeting string `json:"voice_greeting"`
}

// hotlineResponse is the JSON response for a single hotline.
type hotlineResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	PrimaryNumber string `json:"primary_number"`
	PrettyNumber  string `json:"pretty_number"`
	Country       string `json:"country"`
	VoiceGreeting string `json:"voice_greeting"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// toHotlineResponse converts a models.Hotline to the API response.
func toHotlineResponse(h *models.Hotline) hotlineResponse {
	return hotlineResponse{
		ID:            h.ID,
		Name:          h.Name,
		Slug:          h.Slug,
		PrimaryNumber: h.PrimaryNumber,
		PrettyNumber:  telephony.PrettyNumber(h.PrimaryNumber),
		Country:       h.Country,
		VoiceGreeting: h.VoiceGreeting,
		CreatedAt:     h.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     h.UpdatedAt.Format(time.RFC3339),
	}
}

// handleListHotlines returns all hotlines.
func (s *Server) handleListHotlines(w http.ResponseWriter, r *http.Request) {
	hotlines, err := s.hotlines.List(r.Context())
	if err != nil {
		s.logger.Error("list hotlines: failed to query", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]hotlineResponse, len(hotlines))
	for i := range hotlines {
		items[i] = toHotlineResponse(&hotlines[i])
	}

	writeJSON(w, http.StatusOK, items)
}

// handleCreateHotline creates a new hotline.
func (s *Server) handleCreateHotline(w http.ResponseWriter, r *http.Request) {
	var req hotlineRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if errMsg := validateHotlineRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	country := req.Country
	if country == "" {
		country = s.cfg.DefaultCountry
	}

	h := &models.Hotline{
		Name:          req.Name,
		Slug:          req.Slug,
		Country:       country,
		VoiceGreeting: req.VoiceGreeting,
	}

	if req.PrimaryNumber != "" {
		number, err := telephony.NormalizeNumber(req.PrimaryNumber, country)
		if err != nil {
			writeError(w, http.StatusBadRequest, "primary_number is not a valid phone number")
			return
		}
		h.PrimaryNumber = number
	}

	existing, err := s.hotlines.GetBySlug(r.Context(), h.Slug)
	if err != nil {
		s.logger.Error("create hotline: failed to check slug", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "a hotline with this slug already exists")
		return
	}

	if err := s.hotlines.Create(r.Context(), h); err != nil {
		s.logger.Error("create hotline: failed to insert", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	created, err := s.hotlines.GetByID(r.Context(), h.ID)
	if err != nil || created == nil {
		s.logger.Error("create hotline: failed to re-fetch", "error", err, "hotline_id", h.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("hotline created", "hotline_id", created.ID, "slug", created.Slug)

	writeJSON(w, http.StatusCreated, toHotlineResponse(created))
}

// handleGetHotline returns a single hotline by ID.
func (s *Server) handleGetHotline(w http.ResponseWriter, r *http.Request) {
	h, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toHotlineResponse(h))
}

// handleUpdateHotline updates an existing hotline.
func (s *Server) handleUpdateHotline(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	var req hotlineRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if errMsg := validateHotlineRequest(req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if req.Slug != existing.Slug {
		other, err := s.hotlines.GetBySlug(r.Context(), req.Slug)
		if err != nil {
			s.logger.Error("update hotline: failed to check slug", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if other != nil {
			writeError(w, http.StatusConflict, "a hotline with this slug already exists")
			return
		}
	}

	existing.Name = req.Name
	existing.Slug = req.Slug
	existing.VoiceGreeting = req.VoiceGreeting
	if req.Country != "" {
		existing.Country = req.Country
	}

	if req.PrimaryNumber != "" {
		number, err := telephony.NormalizeNumber(req.PrimaryNumber, existing.Country)
		if err != nil {
			writeError(w, http.StatusBadRequest, "primary_number is not a valid phone number")
			return
		}
		existing.PrimaryNumber = number
	} else {
		existing.PrimaryNumber = ""
	}

	if err := s.hotlines.Update(r.Context(), existing); err != nil {
		s.logger.Error("update hotline: failed to update", "error", err, "hotline_id", existing.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	updated, err := s.hotlines.GetByID(r.Context(), existing.ID)
	if err != nil || updated == nil {
		s.logger.Error("update hotline: failed to re-fetch", "error", err, "hotline_id", existing.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("hotline updated", "hotline_id", updated.ID, "slug", updated.Slug)

	writeJSON(w, http.StatusOK, toHotlineResponse(updated))
}

// handleDeleteHotline removes a hotline and, via foreign keys, its members
// and blocklist entries.
func (s *Server) handleDeleteHotline(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.fetchHotline(w, r)
	if !ok {
		return
	}

	if err := s.hotlines.Delete(r.Context(), existing.ID); err != nil {
		s.logger.Error("delete hotline: failed to delete", "error", err, "hotline_id", existing.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("hotline deleted", "hotline_id", existing.ID, "slug", existing.Slug)

	w.WriteHeader(http.StatusNoContent)
}

// fetchHotline loads the hotline named by the {id} URL parameter, writing
// the appropriate error response when it can't. The bool reports success.
func (s *Server) fetchHotline(w http.ResponseWriter, r *http.Request) (*models.Hotline, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hotline id")
		return nil, false
	}

	h, err := s.hotlines.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("fetch hotline: failed to query", "error", err, "hotline_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if h == nil {
		writeError(w, http.StatusNotFound, "hotline not found")
		return nil, false
	}

	return h, true
}

// validateHotlineRequest checks required fields for a hotline create/update.
func validateHotlineRequest(req hotlineRequest) string {
	if msg := validateRequiredStringLen("name", req.Name, maxNameLen); msg != "" {
		return msg
	}
	if msg := validateNoControlChars("name", req.Name); msg != "" {
		return msg
	}
	if msg := validateSlug("slug", req.Slug); msg != "" {
		return msg
	}
	if msg := validateCountry("country", req.Country); msg != "" {
		return msg
	}
	if msg := validateStringLen("primary_number", req.PrimaryNumber, maxNumberLen); msg != "" {
		return msg
	}
	if msg := validateStringLen("voice_greeting", req.VoiceGreeting, maxGreetingLen); msg != "" {
		return msg
	}
	if msg := validateNoControlChars("voice_greeting", req.VoiceGreeting); msg != "" {
		return msg
	}
	return ""
}
