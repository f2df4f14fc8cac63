package engine

import (
	"fmt"
	"strings"
)

// FundingSource says where a participant's wager comes from. It is sealed:
// the only implementations are DirectFunding and SessionFunding.
type FundingSource interface {
	String() string
	isFundingSource()
}

// DirectFunding moves the wager from the participant's own ledger account.
type DirectFunding struct{}

// SessionFunding debits the participant's session vault.
type SessionFunding struct{}

func (DirectFunding) String() string  { return "direct" }
func (SessionFunding) String() string { return "session" }

func (DirectFunding) isFundingSource()  {}
func (SessionFunding) isFundingSource() {}

// ParseFundingSource accepts "direct" (the default when empty) or "session".
func ParseFundingSource(s string) (FundingSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return DirectFunding{}, nil
	case "session", "session_vault":
		return SessionFunding{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFundingSource, s)
	}
}
