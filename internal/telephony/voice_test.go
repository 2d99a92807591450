package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/friendhotline/hotline/internal/database"
	"github.com/friendhotline/hotline/internal/database/models"
)

type dialCall struct {
	From      string
	To        string
	AnswerURL string
}

type speakCall struct {
	CallID string
	Text   string
}

type smsCall struct {
	From string
	To   string
	Text string
}

// fakeGateway records outbound provider calls and can be primed to fail.
type fakeGateway struct {
	dials    []dialCall
	speaks   []speakCall
	messages []smsCall
	dialErr  error
	speakErr error
	smsErr   error
}

func (g *fakeGateway) Dial(_ context.Context, from, to, answerURL string) error {
	if g.dialErr != nil {
		return g.dialErr
	}
	g.dials = append(g.dials, dialCall{From: from, To: to, AnswerURL: answerURL})
	return nil
}

func (g *fakeGateway) SpeakInto(_ context.Context, callID, text string) error {
	if g.speakErr != nil {
		return g.speakErr
	}
	g.speaks = append(g.speaks, speakCall{CallID: callID, Text: text})
	return nil
}

func (g *fakeGateway) SendSMS(_ context.Context, from, to, text string) error {
	if g.smsErr != nil {
		return g.smsErr
	}
	g.messages = append(g.messages, smsCall{From: from, To: to, Text: text})
	return nil
}

type testStore struct {
	hotlines  database.HotlineRepository
	members   database.MemberRepository
	blocklist database.BlockListRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testStore{
		hotlines:  database.NewHotlineRepository(db),
		members:   database.NewMemberRepository(db),
		blocklist: database.NewBlockListRepository(db),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func (s *testStore) createHotline(t *testing.T) *models.Hotline {
	t.Helper()
	h := &models.Hotline{
		Name:          "Test event",
		Slug:          "test",
		PrimaryNumber: "+15550005678",
		Country:       "US",
	}
	if err := s.hotlines.Create(context.Background(), h); err != nil {
		t.Fatalf("creating hotline: %v", err)
	}
	return h
}

func (s *testStore) addMember(t *testing.T, h *models.Hotline, name, number string, verified bool) *models.Member {
	t.Helper()
	m := &models.Member{HotlineID: h.ID, Name: name, Number: number, Verified: verified}
	if err := s.members.Create(context.Background(), m); err != nil {
		t.Fatalf("creating member %s: %v", name, err)
	}
	return m
}

func (s *testStore) addVerifiedMembers(t *testing.T, h *models.Hotline) []*models.Member {
	t.Helper()
	return []*models.Member{
		s.addMember(t, h, "Bob", "+15550000101", true),
		s.addMember(t, h, "Alice", "+15550000202", true),
	}
}

func newTestVoice(s *testStore, gw Gateway) *Voice {
	return NewVoice(s.hotlines, s.members, s.blocklist, gw, testLogger())
}

func inboundCall(reporter string) InboundCall {
	return InboundCall{
		ReporterNumber: reporter,
		HotlineNumber:  "+15550005678",
		ConversationID: "conversation",
		CallID:         "call",
		Host:           "example.com",
	}
}

func TestHandleInboundCallNoHotline(t *testing.T) {
	store := newTestStore(t)
	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall("+15550001234"))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if len(script) != 1 {
		t.Fatalf("script has %d steps, want 1", len(script))
	}
	if !strings.Contains(script[0].Text, "No hotline") {
		t.Errorf("script text = %q, want no-hotline wording", script[0].Text)
	}
	if len(gw.dials) != 0 {
		t.Errorf("placed %d dials, want 0", len(gw.dials))
	}
}

func TestHandleInboundCallBlocked(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	store.addVerifiedMembers(t, h)

	entry := &models.BlockListEntry{HotlineID: h.ID, Number: "+15550001234", BlockedBy: "test"}
	if err := store.blocklist.Create(context.Background(), entry); err != nil {
		t.Fatalf("creating blocklist entry: %v", err)
	}

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall("+15550001234"))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if len(script) != 1 {
		t.Fatalf("script has %d steps, want 1", len(script))
	}
	if !strings.Contains(script[0].Text, "unavailable") {
		t.Errorf("script text = %q, want unavailable wording", script[0].Text)
	}
	// The blocked message must not reveal that the number is blocked.
	if strings.Contains(strings.ToLower(script[0].Text), "block") {
		t.Errorf("script text %q reveals blocking", script[0].Text)
	}
	if len(gw.dials) != 0 {
		t.Errorf("placed %d dials for a blocked caller, want 0", len(gw.dials))
	}
}

func TestHandleInboundCallNoVerifiedMembers(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	store.addMember(t, h, "Unverified Judy", "+15550000303", false)

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall("+15550001234"))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if len(script) != 1 {
		t.Fatalf("script has %d steps, want 1", len(script))
	}
	if !strings.Contains(script[0].Text, "no verified members") {
		t.Errorf("script text = %q, want no-verified-members wording", script[0].Text)
	}
}

func TestHandleInboundCallNonMemberRejected(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	store.addVerifiedMembers(t, h)

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall("+15550099999"))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if len(script) != 1 {
		t.Fatalf("script has %d steps, want 1", len(script))
	}
	if !strings.Contains(script[0].Text, "not a verified member") {
		t.Errorf("script text = %q, want not-a-member wording", script[0].Text)
	}
	if len(gw.dials) != 0 {
		t.Errorf("placed %d dials for a non-member caller, want 0", len(gw.dials))
	}
}

func TestHandleInboundCallFansOut(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	members := store.addVerifiedMembers(t, h)
	caller := members[0]

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall(caller.Number))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	// Greeting followed by the conference hold.
	if len(script) != 2 {
		t.Fatalf("script has %d steps, want 2", len(script))
	}
	if script[0].Action != "talk" || !strings.Contains(script[0].Text, "Thank you") {
		t.Errorf("step 0 = %+v, want default greeting talk", script[0])
	}
	if script[1].Action != "conversation" || script[1].Name != "conversation" {
		t.Errorf("step 1 = %+v, want conversation named after the conversation id", script[1])
	}
	if len(script[1].MusicOnHoldURL) == 0 {
		t.Error("conference step has no hold music")
	}

	// One dial per verified member, in stored order, with the hotline
	// number as caller id and the answer URL carrying the correlation ids.
	if len(gw.dials) != 2 {
		t.Fatalf("placed %d dials, want 2", len(gw.dials))
	}
	wantURL := "https://example.com/telephony/connect-to-conference/conversation/call"
	for i, want := range []string{"+15550000101", "+15550000202"} {
		if gw.dials[i].To != want {
			t.Errorf("dial %d to = %q, want %q", i, gw.dials[i].To, want)
		}
		if gw.dials[i].From != h.PrimaryNumber {
			t.Errorf("dial %d from = %q, want %q", i, gw.dials[i].From, h.PrimaryNumber)
		}
		if gw.dials[i].AnswerURL != wantURL {
			t.Errorf("dial %d answer url = %q, want %q", i, gw.dials[i].AnswerURL, wantURL)
		}
	}
}

func TestHandleInboundCallCustomGreeting(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	members := store.addVerifiedMembers(t, h)

	h.VoiceGreeting = "Ahoyhoy!"
	if err := store.hotlines.Update(context.Background(), h); err != nil {
		t.Fatalf("updating hotline: %v", err)
	}

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall(members[0].Number))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if script[0].Action != "talk" || script[0].Text != "Ahoyhoy!" {
		t.Errorf("step 0 = %+v, want custom greeting verbatim", script[0])
	}
}

func TestHandleInboundCallDialFailureRingsRemaining(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	members := store.addVerifiedMembers(t, h)

	gw := &failFirstGateway{failures: 1}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleInboundCall(context.Background(), inboundCall(members[0].Number))
	if err != nil {
		t.Fatalf("HandleInboundCall() error: %v", err)
	}

	if len(script) != 2 {
		t.Fatalf("script has %d steps, want 2", len(script))
	}
	if len(gw.dials) != 1 {
		t.Fatalf("placed %d successful dials, want 1", len(gw.dials))
	}
	if gw.dials[0].To != members[1].Number {
		t.Errorf("surviving dial to = %q, want second member %q", gw.dials[0].To, members[1].Number)
	}
}

// failFirstGateway fails the first n dials, then records the rest.
type failFirstGateway struct {
	fakeGateway
	failures int
}

func (g *failFirstGateway) Dial(ctx context.Context, from, to, answerURL string) error {
	if g.failures > 0 {
		g.failures--
		return errors.New("provider unavailable")
	}
	return g.fakeGateway.Dial(ctx, from, to, answerURL)
}

func TestHandleMemberAnswerUnknownHotline(t *testing.T) {
	store := newTestStore(t)
	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleMemberAnswer(context.Background(), MemberAnswer{
		HotlineNumber:        "+15550005678",
		MemberNumber:         "+15550000202",
		OriginConversationID: "conversation",
		OriginCallID:         "call",
	})
	if err != nil {
		t.Fatalf("HandleMemberAnswer() error: %v", err)
	}

	if len(script) != 1 {
		t.Fatalf("script has %d steps, want 1", len(script))
	}
	if script[0].Action != "talk" || !strings.Contains(script[0].Text, "error") {
		t.Errorf("script = %+v, want error talk step", script[0])
	}
	if len(gw.speaks) != 0 {
		t.Errorf("announced %d times for unknown hotline, want 0", len(gw.speaks))
	}
}

func TestHandleMemberAnswer(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	store.addVerifiedMembers(t, h)

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	answer := MemberAnswer{
		HotlineNumber:        "+15550005678",
		MemberNumber:         "+15550000202",
		OriginConversationID: "conversation",
		OriginCallID:         "call",
	}
	script, err := voice.HandleMemberAnswer(context.Background(), answer)
	if err != nil {
		t.Fatalf("HandleMemberAnswer() error: %v", err)
	}

	if len(script) != 2 {
		t.Fatalf("script has %d steps, want 2", len(script))
	}
	if script[0].Action != "talk" ||
		!strings.Contains(script[0].Text, "Alice") ||
		!strings.Contains(script[0].Text, "Test event") {
		t.Errorf("step 0 = %+v, want greeting naming member and hotline", script[0])
	}
	if script[1].Action != "conversation" || script[1].Name != "conversation" {
		t.Errorf("step 1 = %+v, want join of origin conversation", script[1])
	}

	// Exactly one announcement into the origin call.
	if len(gw.speaks) != 1 {
		t.Fatalf("announced %d times, want 1", len(gw.speaks))
	}
	if gw.speaks[0].CallID != "call" {
		t.Errorf("announcement call id = %q, want call", gw.speaks[0].CallID)
	}
	if !strings.Contains(gw.speaks[0].Text, "Alice") {
		t.Errorf("announcement text = %q, want it to name Alice", gw.speaks[0].Text)
	}

	// Duplicate delivery of the webhook re-issues the same script.
	again, err := voice.HandleMemberAnswer(context.Background(), answer)
	if err != nil {
		t.Fatalf("HandleMemberAnswer() repeat error: %v", err)
	}
	if len(again) != 2 || again[0].Text != script[0].Text || again[1].Name != script[1].Name {
		t.Errorf("repeated webhook produced a different script: %+v", again)
	}
}

func TestHandleMemberAnswerUnknownMemberUsesNumber(t *testing.T) {
	store := newTestStore(t)
	store.createHotline(t)

	gw := &fakeGateway{}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleMemberAnswer(context.Background(), MemberAnswer{
		HotlineNumber:        "+15550005678",
		MemberNumber:         "+15550000999",
		OriginConversationID: "conversation",
		OriginCallID:         "call",
	})
	if err != nil {
		t.Fatalf("HandleMemberAnswer() error: %v", err)
	}

	if len(script) != 2 {
		t.Fatalf("script has %d steps, want 2", len(script))
	}
	if !strings.Contains(script[0].Text, "+15550000999") {
		t.Errorf("step 0 text = %q, want bare number fallback", script[0].Text)
	}
}

func TestHandleMemberAnswerAnnouncementFailureStillBridges(t *testing.T) {
	store := newTestStore(t)
	h := store.createHotline(t)
	store.addVerifiedMembers(t, h)

	gw := &fakeGateway{speakErr: fmt.Errorf("talk rejected")}
	voice := newTestVoice(store, gw)

	script, err := voice.HandleMemberAnswer(context.Background(), MemberAnswer{
		HotlineNumber:        "+15550005678",
		MemberNumber:         "+15550000101",
		OriginConversationID: "conversation",
		OriginCallID:         "call",
	})
	if err != nil {
		t.Fatalf("HandleMemberAnswer() error: %v", err)
	}
	if len(script) != 2 || script[1].Action != "conversation" {
		t.Errorf("script = %+v, want member still bridged", script)
	}
}
