package telephony

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/database/models"
)

// Gateway is the slice of the messaging provider the voice flows need:
// placing outbound call legs and speaking into an in-progress call.
type Gateway interface {
	// Dial places exactly one outbound call leg. Never retried — a retry
	// risks double-ringing a member.
	Dial(ctx context.Context, from, to, answerURL string) error
	// SpeakInto pushes a text-to-speech announcement into an active call.
	SpeakInto(ctx context.Context, callID, text string) error
}

// InboundCall carries an inbound call webhook after number normalization.
type InboundCall struct {
	ReporterNumber string // who is calling
	HotlineNumber  string // the dialed hotline number
	ConversationID string // provider conversation id, doubles as conference name
	CallID         string // provider call leg id
	Host           string // public host for building answer webhook URLs
}

// MemberAnswer carries a member's call-answer webhook. The origin ids
// correlate the leg back to the inbound call that caused the dial; they
// travel in the answer URL, not in process state.
type MemberAnswer struct {
	HotlineNumber        string
	MemberNumber         string
	OriginConversationID string
	OriginCallID         string
}

// Voice orchestrates inbound hotline calls: it decides whether a call may
// proceed, greets the caller, parks them in a conference, and fans dials
// out to every verified member. Each webhook is handled statelessly.
type Voice struct {
	hotlines  database.HotlineRepository
	members   database.MemberRepository
	blocklist database.BlockListRepository
	gateway   Gateway
	logger    *slog.Logger
}

// NewVoice creates the voice orchestrator.
func NewVoice(hotlines database.HotlineRepository, members database.MemberRepository, blocklist database.BlockListRepository, gateway Gateway, logger *slog.Logger) *Voice {
	return &Voice{
		hotlines:  hotlines,
		members:   members,
		blocklist: blocklist,
		gateway:   gateway,
		logger:    logger.With("component", "voice"),
	}
}

// HandleInboundCall validates the dialed hotline and caller, then either
// returns a one-step terminal script explaining why the call can't
// proceed, or greets the caller, dials all verified members, and parks
// the caller in a conference named after the conversation id.
//
// Expected not-found cases are normal outcomes, not errors; only store or
// provider failures return a non-nil error.
func (v *Voice) HandleInboundCall(ctx context.Context, call InboundCall) ([]Action, error) {
	hotline, err := v.hotlines.GetByNumber(ctx, call.HotlineNumber)
	if err != nil {
		return nil, fmt.Errorf("looking up hotline %s: %w", call.HotlineNumber, err)
	}
	if hotline == nil {
		return []Action{Talk(textNoHotline)}, nil
	}

	blocked, err := v.blocklist.Exists(ctx, hotline.ID, call.ReporterNumber)
	if err != nil {
		return nil, fmt.Errorf("checking blocklist for hotline %s: %w", hotline.Slug, err)
	}
	if blocked {
		v.logger.Info("blocked caller rejected",
			"hotline", hotline.Slug,
			"conversation_id", call.ConversationID,
		)
		return []Action{Talk(textBlocked)}, nil
	}

	members, err := v.members.ListVerified(ctx, hotline.ID)
	if err != nil {
		return nil, fmt.Errorf("listing verified members for hotline %s: %w", hotline.Slug, err)
	}
	if len(members) == 0 {
		return []Action{Talk(textNoMembers)}, nil
	}

	// Only verified members may call into their hotline; a stranger's call
	// is refused before any member is rung.
	if !memberNumbersContain(members, call.ReporterNumber) {
		v.logger.Info("non-member caller rejected",
			"hotline", hotline.Slug,
			"conversation_id", call.ConversationID,
		)
		return []Action{Talk(textNotMember)}, nil
	}

	greeting := hotline.VoiceGreeting
	if greeting == "" {
		greeting = defaultGreeting(hotline.Name)
	}

	answerURL := fmt.Sprintf("https://%s/telephony/connect-to-conference/%s/%s",
		call.Host, call.ConversationID, call.CallID)

	// Ring every verified member in stored order. A failed dial shouldn't
	// stop the remaining members from being rung.
	for _, member := range members {
		if err := v.gateway.Dial(ctx, hotline.PrimaryNumber, member.Number, answerURL); err != nil {
			v.logger.Error("failed to dial member",
				"hotline", hotline.Slug,
				"member_id", member.ID,
				"conversation_id", call.ConversationID,
				"error", err,
			)
			continue
		}
		v.logger.Info("dialed member",
			"hotline", hotline.Slug,
			"member_id", member.ID,
			"conversation_id", call.ConversationID,
		)
	}

	return []Action{
		Talk(greeting),
		WaitInConference(call.ConversationID),
	}, nil
}

// HandleMemberAnswer greets a member who answered an outbound leg,
// announces them into the origin conference, and bridges them in. The
// handler is idempotent: a duplicate webhook re-issues the same script
// and the provider decides which leg is actually bridged.
func (v *Voice) HandleMemberAnswer(ctx context.Context, answer MemberAnswer) ([]Action, error) {
	hotline, err := v.hotlines.GetByNumber(ctx, answer.HotlineNumber)
	if err != nil {
		return nil, fmt.Errorf("looking up hotline %s: %w", answer.HotlineNumber, err)
	}
	if hotline == nil {
		// A dial was placed for this hotline, so it existed moments ago.
		v.logger.Error("member answered for unknown hotline",
			"hotline_number", answer.HotlineNumber,
			"origin_conversation_id", answer.OriginConversationID,
		)
		return []Action{Talk(textAnswerError)}, nil
	}

	// Best effort: fall back to the bare number if the member record has
	// gone missing between dial and answer.
	memberName := answer.MemberNumber
	member, err := v.members.GetByNumber(ctx, hotline.ID, answer.MemberNumber)
	if err != nil {
		return nil, fmt.Errorf("looking up member %s: %w", answer.MemberNumber, err)
	}
	if member != nil {
		memberName = member.Name
	}

	// Announce into the origin conversation before returning the joining
	// member's script so existing participants hear the join promptly.
	if err := v.gateway.SpeakInto(ctx, answer.OriginCallID, answerAnnouncement(memberName)); err != nil {
		v.logger.Error("failed to announce member into conference",
			"hotline", hotline.Slug,
			"origin_call_id", answer.OriginCallID,
			"error", err,
		)
	}

	v.logger.Info("bridging member into conference",
		"hotline", hotline.Slug,
		"origin_conversation_id", answer.OriginConversationID,
	)

	return []Action{
		Talk(answerGreeting(memberName, hotline.Name)),
		JoinConference(answer.OriginConversationID),
	}, nil
}

func memberNumbersContain(members []models.Member, number string) bool {
	for _, m := range members {
		if m.Number == number {
			return true
		}
	}
	return false
}
