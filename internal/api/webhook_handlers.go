package api

import (
	"encoding/json"
	"net/http"

	"github.com/friendhotline/hotline/internal/telephony"
	"github.com/go-chi/chi/v5"
)

// answerRequest is the JSON body the provider posts to answer webhooks.
// For an inbound leg "from" is the caller; for an outbound leg "from" is
// the caller id we dialed with and "to" is the number that was rung.
type answerRequest struct {
	From             string `json:"from"`
	To               string `json:"to"`
	ConversationUUID string `json:"conversation_uuid"`
	UUID             string `json:"uuid"`
}

// writeScript responds with a bare NCCO action array. Unlike the JSON API,
// call webhooks never use the response envelope and never return a non-200
// status: the provider would drop the call.
func writeScript(w http.ResponseWriter, actions []telephony.Action) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(actions); err != nil {
		// Too late to change the response; the provider will retry.
		return
	}
}

// answerHost returns the host to embed in answer webhook URLs.
func (s *Server) answerHost(r *http.Request) string {
	if s.cfg.PublicHost != "" {
		return s.cfg.PublicHost
	}
	return r.Host
}

// handleInboundCall is the answer webhook for calls arriving on a hotline
// number.
func (s *Server) handleInboundCall(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Error("inbound call: undecodable webhook", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}

	reporter, err := telephony.NormalizeProviderNumber(req.From)
	if err != nil {
		s.logger.Error("inbound call: bad caller number", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}
	hotlineNumber, err := telephony.NormalizeProviderNumber(req.To)
	if err != nil {
		s.logger.Error("inbound call: bad hotline number", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}

	actions, err := s.voice.HandleInboundCall(r.Context(), telephony.InboundCall{
		ReporterNumber: reporter,
		HotlineNumber:  hotlineNumber,
		ConversationID: req.ConversationUUID,
		CallID:         req.UUID,
		Host:           s.answerHost(r),
	})
	if err != nil {
		s.logger.Error("inbound call: handling failed",
			"conversation_id", req.ConversationUUID,
			"error", err,
		)
		writeScript(w, telephony.ErrorScript())
		return
	}

	writeScript(w, actions)
}

// handleConnectToConference is the answer webhook for an outbound member
// leg. The origin call's ids travel in the URL so no state is needed to
// correlate the legs.
func (s *Server) handleConnectToConference(w http.ResponseWriter, r *http.Request) {
	originConversationID := chi.URLParam(r, "conversationID")
	originCallID := chi.URLParam(r, "callID")

	var req answerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Error("member answer: undecodable webhook", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}

	memberNumber, err := telephony.NormalizeProviderNumber(req.To)
	if err != nil {
		s.logger.Error("member answer: bad member number", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}
	hotlineNumber, err := telephony.NormalizeProviderNumber(req.From)
	if err != nil {
		s.logger.Error("member answer: bad hotline number", "error", err)
		writeScript(w, telephony.ErrorScript())
		return
	}

	actions, err := s.voice.HandleMemberAnswer(r.Context(), telephony.MemberAnswer{
		HotlineNumber:        hotlineNumber,
		MemberNumber:         memberNumber,
		OriginConversationID: originConversationID,
		OriginCallID:         originCallID,
	})
	if err != nil {
		s.logger.Error("member answer: handling failed",
			"origin_conversation_id", originConversationID,
			"error", err,
		)
		writeScript(w, telephony.ErrorScript())
		return
	}

	writeScript(w, actions)
}

// handleInboundSMS receives inbound SMS webhooks. The provider sends
// form-encoded fields; replies that aren't verification answers are
// silently dropped. Always 204: a retry would re-process the same text.
func (s *Server) handleInboundSMS(w http.ResponseWriter, r *http.Request) {
	sender := r.FormValue("msisdn")
	body := r.FormValue("text")
	if sender == "" || body == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	number, err := telephony.NormalizeProviderNumber(sender)
	if err != nil {
		s.logger.Error("inbound sms: bad sender number", "error", err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	handled, err := s.verification.MaybeHandleVerification(r.Context(), number, body)
	if err != nil {
		s.logger.Error("inbound sms: verification failed", "error", err)
	} else if !handled {
		s.logger.Debug("inbound sms ignored")
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCallEvent receives call status events. They are acknowledged and
// dropped; every decision is made in the answer webhooks.
func (s *Server) handleCallEvent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
