package vonage

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Default Vonage/Nexmo API endpoints. Overridable for tests.
const (
	defaultRESTBaseURL = "https://rest.nexmo.com"
	defaultAPIBaseURL  = "https://api.nexmo.com"
)

// smsStatusOK is the per-message status code for a delivered submission.
const smsStatusOK = "0"

// throughputErrorText appears in the provider's error-text when an SMS
// submission is throttled. Only this failure is worth retrying.
const throughputErrorText = "Throughput Rate Exceeded"

// APIError is a failure reported by the provider for a single request.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("vonage: %s (status %s)", e.Message, e.Status)
	}
	return "vonage: " + e.Message
}

// IsThroughputLimited reports whether an error is the provider's SMS
// rate-limit rejection.
func IsThroughputLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, throughputErrorText)
}

// Config holds the provider credentials and endpoints for a Client.
type Config struct {
	APIKey        string
	APISecret     string
	ApplicationID string
	PrivateKey    *rsa.PrivateKey // signs Voice API application JWTs
	RESTBaseURL   string          // defaults to the public REST endpoint
	APIBaseURL    string          // defaults to the public API endpoint
}

// Client talks to the Vonage SMS and Voice APIs. SMS sends are retried on
// throughput throttling; call placement is never retried because a dial
// is not idempotent.
type Client struct {
	httpClient *http.Client
	cfg        Config
	smsRetry   RetryPolicy
	logger     *slog.Logger
}

// NewClient creates a provider client with the standard retry policy:
// throttled SMS submissions retried every second for up to 30 seconds.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.RESTBaseURL == "" {
		cfg.RESTBaseURL = defaultRESTBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cfg:        cfg,
		smsRetry: RetryPolicy{
			Predicate: IsThroughputLimited,
			Interval:  time.Second,
			Deadline:  30 * time.Second,
		},
		logger: logger.With("component", "vonage"),
	}
}

// smsRequest is the JSON payload for POST /sms/json.
type smsRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
}

// smsResponse is the provider's SMS submission response. A 200 response
// can still carry a failed message, so the per-message status and
// error-text are what decide success.
type smsResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

// SendSMS sends one SMS, retrying throttled submissions under the
// client's retry policy. All other provider failures surface immediately.
func (c *Client) SendSMS(ctx context.Context, from, to, text string) error {
	return c.smsRetry.Do(ctx, func() error {
		return c.sendSMSOnce(ctx, from, to, text)
	})
}

// SendSMSNoFail sends one SMS and downgrades any failure to a log entry.
// Used on notification paths where a secondary failure must never mask
// the primary one.
func (c *Client) SendSMSNoFail(ctx context.Context, from, to, text string) {
	if err := c.SendSMS(ctx, from, to, text); err != nil {
		c.logger.Error("failed to send notification sms", "error", err)
	}
}

func (c *Client) sendSMSOnce(ctx context.Context, from, to, text string) error {
	req := smsRequest{
		APIKey:    c.cfg.APIKey,
		APISecret: c.cfg.APISecret,
		// The provider rejects senders with a leading plus.
		From: strings.TrimPrefix(from, "+"),
		To:   strings.TrimPrefix(to, "+"),
		Text: text,
	}

	var resp smsResponse
	if err := c.post(ctx, c.cfg.RESTBaseURL+"/sms/json", "", req, &resp); err != nil {
		return err
	}

	if len(resp.Messages) == 0 {
		return &APIError{Message: "empty sms response"}
	}
	// The HTTP layer reports success even for failed messages; the real
	// outcome is in the message entry.
	msg := resp.Messages[0]
	if msg.Status != smsStatusOK || msg.ErrorText != "" {
		return &APIError{Status: msg.Status, Message: msg.ErrorText}
	}

	c.logger.Debug("sms sent", "to", req.To, "length", len(text))
	return nil
}

// callRequest is the JSON payload for POST /v1/calls.
type callRequest struct {
	To        []callEndpoint `json:"to"`
	From      callEndpoint   `json:"from"`
	AnswerURL []string       `json:"answer_url"`
}

type callEndpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// Dial places exactly one outbound call leg that fetches its call-control
// script from answerURL once answered. Never retried.
func (c *Client) Dial(ctx context.Context, from, to, answerURL string) error {
	token, err := c.applicationToken()
	if err != nil {
		return err
	}

	req := callRequest{
		To:        []callEndpoint{{Type: "phone", Number: strings.TrimPrefix(to, "+")}},
		From:      callEndpoint{Type: "phone", Number: strings.TrimPrefix(from, "+")},
		AnswerURL: []string{answerURL},
	}

	if err := c.post(ctx, c.cfg.APIBaseURL+"/v1/calls", token, req, nil); err != nil {
		return err
	}

	c.logger.Debug("call placed", "answer_url", answerURL)
	return nil
}

// talkRequest is the JSON payload for PUT /v1/calls/{uuid}/talk.
type talkRequest struct {
	Text string `json:"text"`
}

// SpeakInto plays a text-to-speech announcement into an active call leg.
func (c *Client) SpeakInto(ctx context.Context, callID, text string) error {
	token, err := c.applicationToken()
	if err != nil {
		return err
	}
	url := c.cfg.APIBaseURL + "/v1/calls/" + callID + "/talk"
	return c.do(ctx, http.MethodPut, url, token, talkRequest{Text: text}, nil)
}

// applicationToken mints a short-lived RS256 JWT identifying the Vonage
// application, as required by the Voice API.
func (c *Client) applicationToken() (string, error) {
	if c.cfg.PrivateKey == nil {
		return "", &APIError{Message: "no application private key configured"}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"application_id": c.cfg.ApplicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Minute).Unix(),
		"jti":            uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing application token: %w", err)
	}
	return token, nil
}

func (c *Client) post(ctx context.Context, url, token string, payload, out any) error {
	return c.do(ctx, http.MethodPost, url, token, payload, out)
}

func (c *Client) do(ctx context.Context, method, url, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  fmt.Sprintf("%d", resp.StatusCode),
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
