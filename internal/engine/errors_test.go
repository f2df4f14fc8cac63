package engine

import (
	"errors"
	"fmt"
	"testing"

	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/oracle"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrPlatformPaused, KindPolicy},
		{fmt.Errorf("%w: cap", fees.ErrInvalidSchedule), KindPolicy},
		{ErrInvalidGameID, KindInvalid},
		{ErrMatchNotAvailable, KindState},
		{ErrAlreadyInitialized, KindState},
		{governance.ErrInsufficientAdminSignatures, KindAuthorization},
		{oracle.ErrPublicKeyMismatch, KindAuthorization},
		{fmt.Errorf("%w: acct", ledger.ErrInsufficientFunds), KindFunds},
		{fmt.Errorf("%w: moving 1", ledger.ErrBalanceOverflow), KindInvalid},
		{ErrInsufficientSessionBalance, KindFunds},
		{ErrSessionNotFound, KindNotFound},
		{errors.New("boom"), KindInternal},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v)=%s want=%s", tc.err, got, tc.want)
		}
	}
}

func TestParseFundingSource(t *testing.T) {
	for in, want := range map[string]FundingSource{"": DirectFunding{}, "direct": DirectFunding{}, "Session": SessionFunding{}} {
		got, err := ParseFundingSource(in)
		if err != nil || got != want {
			t.Fatalf("ParseFundingSource(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseFundingSource("credit"); !errors.Is(err, ErrInvalidFundingSource) {
		t.Fatalf("err=%v", err)
	}
}
