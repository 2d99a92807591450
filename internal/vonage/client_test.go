package vonage

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(Config{
		APIKey:        "key",
		APISecret:     "secret",
		ApplicationID: "app-id",
		PrivateKey:    key,
		RESTBaseURL:   srv.URL,
		APIBaseURL:    srv.URL,
	}, logger)
	// Keep test retries fast.
	c.smsRetry.Interval = time.Millisecond
	c.smsRetry.Deadline = 50 * time.Millisecond
	return c
}

func smsBody(t *testing.T, r *http.Request) smsRequest {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading request body: %v", err)
	}
	var req smsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("decoding request body: %v", err)
	}
	return req
}

func TestSendSMS(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sms/json" {
			t.Errorf("path = %s, want /sms/json", r.URL.Path)
		}
		got = smsBody(t, r)
		io.WriteString(w, `{"messages":[{"status":"0","error-text":""}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.SendSMS(context.Background(), "+15550005678", "+15550000303", "hello"); err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}

	// The provider wants E.164 without the plus.
	if got.From != "15550005678" {
		t.Errorf("from = %q, want 15550005678", got.From)
	}
	if got.To != "15550000303" {
		t.Errorf("to = %q, want 15550000303", got.To)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want hello", got.Text)
	}
}

func TestSendSMSInlineErrorIsFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		// HTTP 200 but the message itself failed.
		io.WriteString(w, `{"messages":[{"status":"4","error-text":"Bad Credentials"}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	err := c.SendSMS(context.Background(), "+15550005678", "+15550000303", "hello")
	if err == nil {
		t.Fatal("SendSMS() = nil, want inline error surfaced")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !strings.Contains(apiErr.Message, "Bad Credentials") {
		t.Errorf("error = %v, want APIError with provider text", err)
	}
	// Permanent failures are not retried.
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestSendSMSRetriesThrottling(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			io.WriteString(w, `{"messages":[{"status":"1","error-text":"Throughput Rate Exceeded - please wait [ 250 ] and retry"}]}`)
			return
		}
		io.WriteString(w, `{"messages":[{"status":"0"}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.SendSMS(context.Background(), "+15550005678", "+15550000303", "hello"); err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestSendSMSNoFailSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	// Must not panic or propagate.
	c.SendSMSNoFail(context.Background(), "+15550005678", "+15550000303", "hello")
}

func TestDial(t *testing.T) {
	attempts := 0
	var auth string
	var got callRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.URL.Path != "/v1/calls" {
			t.Errorf("path = %s, want /v1/calls", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("decoding call request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"uuid":"leg-uuid","status":"started"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	err := c.Dial(context.Background(), "+15550005678", "+15550000101",
		"https://example.com/telephony/connect-to-conference/conv/call")
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	if !strings.HasPrefix(auth, "Bearer ") {
		t.Errorf("authorization = %q, want application JWT bearer", auth)
	}
	if len(got.To) != 1 || got.To[0].Number != "15550000101" || got.To[0].Type != "phone" {
		t.Errorf("to = %+v, want phone 15550000101", got.To)
	}
	if got.From.Number != "15550005678" {
		t.Errorf("from = %+v, want 15550005678", got.From)
	}
	if len(got.AnswerURL) != 1 || !strings.Contains(got.AnswerURL[0], "example.com") {
		t.Errorf("answer_url = %v", got.AnswerURL)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1", attempts)
	}
}

func TestDialNeverRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	err := c.Dial(context.Background(), "+15550005678", "+15550000101", "https://example.com/answer")
	if err == nil {
		t.Fatal("Dial() = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (dials are not idempotent)", attempts)
	}
}

func TestSpeakInto(t *testing.T) {
	var method, path, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		var req talkRequest
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &req)
		text = req.Text
		io.WriteString(w, `{"message":"Talk started"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.SpeakInto(context.Background(), "call-uuid", "Alice is joining this call."); err != nil {
		t.Fatalf("SpeakInto() error: %v", err)
	}

	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/v1/calls/call-uuid/talk" {
		t.Errorf("path = %s, want /v1/calls/call-uuid/talk", path)
	}
	if text != "Alice is joining this call." {
		t.Errorf("text = %q", text)
	}
}
