package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event names emitted by the settlement engine.
const (
	EventPlatformInitialized       = "PlatformInitialized"
	EventMatchCreated              = "MatchCreated"
	EventMatchJoined               = "MatchJoined"
	EventMatchCompleted            = "MatchCompleted"
	EventMatchRefunded             = "MatchRefunded"
	EventSessionCreated            = "SessionCreated"
	EventSessionDeposit            = "SessionDeposit"
	EventSessionWithdraw           = "SessionWithdraw"
	EventEmergencyPauseActivated   = "EmergencyPauseActivated"
	EventEmergencyPauseDeactivated = "EmergencyPauseDeactivated"
	EventFeesUpdated               = "FeesUpdated"
	EventVaultRecovered            = "VaultRecovered"
	EventLedgerFunded              = "LedgerFunded"
)

type Event struct {
	ID      string         `json:"id"`
	Name    string         `json:"event"`
	Ref     string         `json:"ref"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

// Publisher receives events after the operation that produced them has
// committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher. A failing publisher is logged
// and does not stop the others.
type Multi struct {
	Publishers []Publisher
	Logger     *zap.Logger
}

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m.Publishers {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			if first == nil {
				first = err
			}
			if m.Logger != nil {
				m.Logger.Warn("notify publish failed", zap.String("event", ev.Name), zap.String("ref", ev.Ref), zap.Error(err))
			}
		}
	}
	return first
}
