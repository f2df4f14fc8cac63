package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"wagerescrow/internal/amount"
	"wagerescrow/internal/config"
)

// Dispatcher delivers events to the webhook and Telegram channels configured
// under notify.channels. Each channel may restrict the event names it wants.
type Dispatcher struct {
	Project  string
	Channels []config.ChannelConfig
	Webhook  WebhookSender
	TG       TelegramSender
	Timeout  time.Duration
	Logger   *zap.Logger
}

func (d *Dispatcher) Publish(ctx context.Context, ev Event) error {
	if d == nil || len(d.Channels) == 0 {
		return nil
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	message := FormatMessage(ev)
	var errs []error
	for _, ch := range d.Channels {
		if !eventMatch(ch.Events, ev.Name) {
			continue
		}
		if err := d.sendOne(ctx, ch, ev, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Type, err))
			if d.Logger != nil {
				d.Logger.Warn("notify channel failed",
					zap.String("channel", ch.Type),
					zap.String("event", ev.Name),
					zap.Error(err),
				)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) sendOne(ctx context.Context, ch config.ChannelConfig, ev Event, message string) error {
	switch strings.ToLower(strings.TrimSpace(ch.Type)) {
	case "webhook":
		url := strings.TrimSpace(ch.URL)
		if url == "" {
			return errors.New("webhook url missing")
		}
		return d.Webhook.Send(ctx, url, strings.TrimSpace(ch.Secret), NewWebhookPayload(d.Project, ev))
	case "telegram":
		chatID := strings.TrimSpace(ch.ChatID)
		botToken := strings.TrimSpace(ch.BotToken)
		if chatID == "" {
			return errors.New("telegram chat_id missing")
		}
		if botToken == "" {
			return errors.New("telegram bot_token missing")
		}
		return d.TG.Send(ctx, botToken, chatID, message)
	default:
		return errors.New("unsupported channel")
	}
}

// amountKeys are payload fields holding lamport amounts; they are rendered as
// token values in human-readable messages.
var amountKeys = map[string]struct{}{
	"wager_amount":  {},
	"total_pot":     {},
	"winner_amount": {},
	"platform_fee":  {},
	"treasury_fee":  {},
	"referral_fee":  {},
	"refund_amount": {},
	"amount":        {},
	"balance":       {},
}

// FormatMessage renders an event as a single line: name, ref and the payload
// fields in key order.
func FormatMessage(ev Event) string {
	var b strings.Builder
	b.WriteString(ev.Name)
	if ev.Ref != "" {
		b.WriteString(" ")
		b.WriteString(ev.Ref)
	}
	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := ev.Payload[k]
		if _, ok := amountKeys[k]; ok {
			if n, ok := v.(int64); ok {
				v = amount.FormatToken(n)
			}
		}
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	return b.String()
}

func eventMatch(events []string, event string) bool {
	// Empty events means allow all.
	if len(events) == 0 {
		return true
	}
	event = strings.TrimSpace(event)
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if e == "*" {
			return true
		}
		if event != "" && e == event {
			return true
		}
	}
	return false
}
