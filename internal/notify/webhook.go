package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"wagerescrow/internal/amount"
)

// Headers set on every escrow webhook delivery. Receivers dedupe on the event
// id; the signature is present only when the channel has a secret.
const (
	HeaderEvent     = "X-Escrow-Event"
	HeaderEventID   = "X-Escrow-Event-Id"
	HeaderSignature = "X-Escrow-Signature"
)

// WebhookPayload is the JSON body posted for one escrow event. Amounts repeats
// the lamport fields of Data as decimal token strings.
type WebhookPayload struct {
	ID      string            `json:"id,omitempty"`
	Project string            `json:"project"`
	Event   string            `json:"event"`
	Ref     string            `json:"ref,omitempty"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data,omitempty"`
	Amounts map[string]string `json:"amounts,omitempty"`
	At      time.Time         `json:"at"`
}

func NewWebhookPayload(project string, ev Event) WebhookPayload {
	p := WebhookPayload{
		ID:      ev.ID,
		Project: project,
		Event:   ev.Name,
		Ref:     ev.Ref,
		Message: FormatMessage(ev),
		Data:    ev.Payload,
		At:      ev.At,
	}
	for k, v := range ev.Payload {
		if _, ok := amountKeys[k]; !ok {
			continue
		}
		n, ok := v.(int64)
		if !ok {
			continue
		}
		if p.Amounts == nil {
			p.Amounts = map[string]string{}
		}
		p.Amounts[k] = amount.FormatToken(n)
	}
	return p
}

// SignWebhookBody returns the X-Escrow-Signature value for body:
// "sha256=" followed by the hex HMAC-SHA256 under secret.
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type WebhookSender struct {
	HTTP *http.Client
}

func (s WebhookSender) Send(ctx context.Context, url, secret string, payload WebhookPayload) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, payload.Event)
	if payload.ID != "" {
		req.Header.Set(HeaderEventID, payload.ID)
	}
	if secret != "" {
		req.Header.Set(HeaderSignature, SignWebhookBody(secret, b))
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{Event: payload.Event, StatusCode: resp.StatusCode}
	}
	return nil
}

type httpError struct {
	Event      string
	StatusCode int
}

func (e *httpError) Error() string {
	return "webhook " + e.Event + ": http status " + http.StatusText(e.StatusCode)
}
