package engine

import (
	"errors"

	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/oracle"
)

var (
	ErrNotInitialized     = errors.New("platform not initialized")
	ErrAlreadyInitialized = errors.New("platform already initialized")

	ErrPlatformPaused     = errors.New("platform paused")
	ErrWagerTooLow        = errors.New("wager too low")
	ErrWagerTooHigh       = errors.New("wager too high")
	ErrInvalidExpiryTime  = errors.New("invalid expiry time")
	ErrInvalidGameID      = errors.New("invalid game id")
	ErrInvalidFeeSchedule = fees.ErrInvalidSchedule

	ErrMatchNotFound             = errors.New("match not found")
	ErrMatchIDConflict           = errors.New("match id already in use")
	ErrMatchNotAvailable         = errors.New("match not available")
	ErrCannotJoinOwnMatch        = errors.New("cannot join own match")
	ErrMatchExpired              = errors.New("match expired")
	ErrMatchNotInProgress        = errors.New("match not in progress")
	ErrInvalidWinner             = errors.New("invalid winner")
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")
	ErrMatchNotExpired           = errors.New("match not expired")
	ErrMatchAlreadySettled       = errors.New("match already settled")
	ErrInvalidFundingSource      = errors.New("invalid funding source")

	ErrSessionAlreadyExists       = errors.New("session already exists")
	ErrSessionNotFound            = errors.New("session not found")
	ErrInsufficientSessionBalance = errors.New("insufficient session balance")
	ErrInvalidAmount              = errors.New("invalid amount")

	ErrThresholdTooLow     = errors.New("inactivity threshold too low")
	ErrVaultNotInactive    = errors.New("vault not inactive")
	ErrEmptyVault          = errors.New("vault is empty")
	ErrInvalidDestination  = errors.New("invalid recovery destination")
	ErrInvalidSignerConfig = governance.ErrInvalidSignerSet
	ErrAlertNotFound       = errors.New("alert not found")
)

// ErrorKind groups engine errors by how a caller should react to them.
type ErrorKind string

const (
	KindPolicy        ErrorKind = "policy"
	KindInvalid       ErrorKind = "invalid"
	KindState         ErrorKind = "state"
	KindAuthorization ErrorKind = "authorization"
	KindFunds         ErrorKind = "insufficient_funds"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

var kinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindPolicy, []error{ErrPlatformPaused, ErrWagerTooLow, ErrWagerTooHigh, ErrInvalidFeeSchedule, ErrThresholdTooLow}},
	{KindInvalid, []error{
		ErrInvalidExpiryTime, ErrInvalidGameID, ErrInvalidAmount, ErrInvalidFundingSource,
		ErrInvalidWinner, ErrInvalidDestination, ErrInvalidSignerConfig, ledger.ErrInvalidAmount,
		ledger.ErrSelfTransfer, ledger.ErrBalanceOverflow, governance.ErrUnknownOperation,
	}},
	{KindState, []error{
		ErrNotInitialized, ErrAlreadyInitialized, ErrMatchIDConflict,
		ErrMatchNotAvailable, ErrCannotJoinOwnMatch, ErrMatchExpired, ErrMatchNotInProgress,
		ErrMatchNotExpired, ErrMatchAlreadySettled, ErrSessionAlreadyExists, ErrVaultNotInactive,
		ErrEmptyVault,
	}},
	{KindAuthorization, []error{
		governance.ErrInsufficientAdminSignatures, governance.ErrUnauthorizedAdmin,
		oracle.ErrInvalidSignatureData, oracle.ErrInvalidSignatureCount,
		oracle.ErrSignatureMismatch, oracle.ErrPublicKeyMismatch,
	}},
	{KindFunds, []error{ErrInsufficientSessionBalance, ErrInsufficientEscrowBalance, ledger.ErrInsufficientFunds}},
	{KindNotFound, []error{ErrMatchNotFound, ErrSessionNotFound, ErrAlertNotFound}},
}

// Kind classifies err. Unknown errors are internal.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}
