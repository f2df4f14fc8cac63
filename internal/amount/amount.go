// Package amount converts between whole-token decimal strings and the integer
// lamport amounts every balance is stored in.
package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Decimals         = 9
	LamportsPerToken = int64(1_000_000_000)

	MinWager = int64(100_000_000)    // 0.1 token
	MaxWager = int64(10_000_000_000) // 10 tokens
)

var (
	ErrInvalid    = errors.New("invalid token amount")
	ErrFractional = errors.New("amount has more than 9 decimal places")
)

var lamportsPerToken = decimal.NewFromInt(LamportsPerToken)

// ParseToken parses a decimal token amount such as "1.25" into lamports.
func ParseToken(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return FromToken(d)
}

func FromToken(d decimal.Decimal) (int64, error) {
	l := d.Mul(lamportsPerToken)
	if !l.Equal(l.Truncate(0)) {
		return 0, ErrFractional
	}
	if l.GreaterThan(decimal.NewFromInt(1<<62)) || l.LessThan(decimal.NewFromInt(-(1 << 62))) {
		return 0, ErrInvalid
	}
	return l.IntPart(), nil
}

func ToToken(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -Decimals)
}

// FormatToken renders lamports as a token string without trailing zeros.
func FormatToken(lamports int64) string {
	return ToToken(lamports).String()
}
