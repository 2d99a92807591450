package telephony

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/database/models"
)

// Texter sends SMS messages through the messaging provider.
type Texter interface {
	SendSMS(ctx context.Context, from, to, text string) error
}

// affirmativeRe matches an affirmative token anywhere in a reply. Word
// boundaries keep "ok" from matching inside unrelated words while still
// accepting replies like "yes please".
var affirmativeRe = regexp.MustCompile(`(?i)\b(yes|okay|ok)\b`)

// Verification runs the SMS handshake that proves a member owns their
// number before the hotline will dial it. The channel being registered is
// the channel that proves ownership, so no token or link is involved.
type Verification struct {
	hotlines database.HotlineRepository
	members  database.MemberRepository
	gateway  Texter
	// virtualNumber is the process-wide fallback sender for hotlines that
	// have no number assigned yet.
	virtualNumber string
	// domain appears in the verification request so members know where the
	// invitation came from.
	domain string
	logger *slog.Logger
}

// NewVerification creates the verification engine.
func NewVerification(hotlines database.HotlineRepository, members database.MemberRepository, gateway Texter, virtualNumber, domain string, logger *slog.Logger) *Verification {
	return &Verification{
		hotlines:      hotlines,
		members:       members,
		gateway:       gateway,
		virtualNumber: virtualNumber,
		domain:        domain,
		logger:        logger.With("component", "verification"),
	}
}

// StartMemberVerification texts a newly added member asking them to
// confirm their number. The member stays unverified until they reply.
func (v *Verification) StartMemberVerification(ctx context.Context, hotline *models.Hotline, member *models.Member) error {
	sender := hotline.PrimaryNumber
	if sender == "" {
		sender = v.virtualNumber
	}

	msg := verificationRequest(hotline.Name, v.domain)
	if err := v.gateway.SendSMS(ctx, sender, member.Number, msg); err != nil {
		return fmt.Errorf("sending verification request to member %d: %w", member.ID, err)
	}

	v.logger.Info("verification request sent",
		"hotline", hotline.Slug,
		"member_id", member.ID,
	)
	return nil
}

// MaybeHandleVerification interprets an inbound SMS against pending
// verification requests. An affirmative reply from a number with a
// pending unverified member flips that member to verified — a one-way
// transition — and texts back a confirmation. Anything else (negative or
// unrecognized replies, or no pending member) changes nothing and sends
// nothing. The returned bool reports whether the message was consumed.
func (v *Verification) MaybeHandleVerification(ctx context.Context, number, body string) (bool, error) {
	if !affirmativeRe.MatchString(body) {
		return false, nil
	}

	member, err := v.members.GetPendingByNumber(ctx, number)
	if err != nil {
		return false, fmt.Errorf("looking up pending member for %s: %w", number, err)
	}
	if member == nil {
		return false, nil
	}

	hotline, err := v.hotlines.GetByID(ctx, member.HotlineID)
	if err != nil {
		return false, fmt.Errorf("looking up hotline %d: %w", member.HotlineID, err)
	}
	if hotline == nil {
		// Pending member whose hotline is gone; nothing sensible to confirm.
		v.logger.Error("pending member references missing hotline",
			"member_id", member.ID,
			"hotline_id", member.HotlineID,
		)
		return false, nil
	}

	member.Verified = true
	if err := v.members.Update(ctx, member); err != nil {
		return false, fmt.Errorf("marking member %d verified: %w", member.ID, err)
	}

	v.logger.Info("member verified",
		"hotline", hotline.Slug,
		"member_id", member.ID,
	)

	sender := hotline.PrimaryNumber
	if sender == "" {
		sender = v.virtualNumber
	}
	if err := v.gateway.SendSMS(ctx, sender, member.Number, textConfirmed); err != nil {
		// The member is verified either way; the confirmation is a courtesy.
		return true, fmt.Errorf("sending confirmation to member %d: %w", member.ID, err)
	}

	return true, nil
}
