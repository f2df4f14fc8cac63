// Package governance implements the admin multisig: canonical digests for
// governance operations and the threshold check applied to their approvals.
package governance

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"wagerescrow/internal/address"
)

const (
	domainTag = "wagerescrow/governance/v1"

	DefaultThreshold = 2
	SignerSetSize    = 3
)

type Operation string

const (
	OpEmergencyPause   Operation = "emergency_pause"
	OpEmergencyUnpause Operation = "emergency_unpause"
	OpUpdateFees       Operation = "update_fees"
	OpRecoverVault     Operation = "recover_inactive_vault"
)

var (
	ErrInsufficientAdminSignatures = errors.New("insufficient admin signatures")
	ErrUnauthorizedAdmin           = errors.New("unauthorized admin")
	ErrInvalidSignerSet            = errors.New("invalid admin signer set")
	ErrUnknownOperation            = errors.New("unknown governance operation")
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpEmergencyPause, OpEmergencyUnpause, OpUpdateFees, OpRecoverVault:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

type Approval struct {
	Signer    address.Address `json:"signer"`
	Signature []byte          `json:"signature"`
}

// Digest is the message every admin signs for op. configVersion binds the
// approval to the platform state it was produced against, so an approval
// cannot be replayed after any governance change.
func Digest(op Operation, configVersion int64, params []byte) []byte {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(configVersion))
	return crypto.Keccak256([]byte(domainTag), []byte(op), []byte{0}, params, v[:])
}

func FeesParams(platformBps, treasuryBps, referralBps int64) []byte {
	out := make([]byte, 24)
	binary.BigEndian.PutUint64(out[0:8], uint64(platformBps))
	binary.BigEndian.PutUint64(out[8:16], uint64(treasuryBps))
	binary.BigEndian.PutUint64(out[16:24], uint64(referralBps))
	return out
}

func RecoverParams(owner, destination address.Address, thresholdHours int64) []byte {
	out := make([]byte, 0, 2*address.Size+8)
	out = append(out, owner[:]...)
	out = append(out, destination[:]...)
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], uint64(thresholdHours))
	return append(out, h[:]...)
}

func Sign(priv ed25519.PrivateKey, digest []byte) Approval {
	pub := priv.Public().(ed25519.PublicKey)
	return Approval{Signer: address.FromPublicKey(pub), Signature: ed25519.Sign(priv, digest)}
}

type Policy struct {
	Signers   []address.Address
	Threshold int
}

func NewPolicy(signers []address.Address) (Policy, error) {
	if err := ValidateSignerSet(signers); err != nil {
		return Policy{}, err
	}
	return Policy{Signers: signers, Threshold: DefaultThreshold}, nil
}

func ValidateSignerSet(signers []address.Address) error {
	if len(signers) != SignerSetSize {
		return fmt.Errorf("%w: want %d signers, got %d", ErrInvalidSignerSet, SignerSetSize, len(signers))
	}
	seen := make(map[address.Address]struct{}, len(signers))
	for _, s := range signers {
		if s.IsZero() {
			return fmt.Errorf("%w: zero signer", ErrInvalidSignerSet)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate signer %s", ErrInvalidSignerSet, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Authorize checks approvals over digest and returns the distinct signers in
// the order they were first supplied. Every approval must come from a member
// of the signer set and carry a valid signature; repeated approvals from one
// signer count once.
func (p Policy) Authorize(digest []byte, approvals []Approval) ([]address.Address, error) {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	members := make(map[address.Address]struct{}, len(p.Signers))
	for _, s := range p.Signers {
		members[s] = struct{}{}
	}

	distinct := make([]address.Address, 0, len(approvals))
	seen := make(map[address.Address]struct{}, len(approvals))
	for _, a := range approvals {
		if _, ok := seen[a.Signer]; ok {
			continue
		}
		seen[a.Signer] = struct{}{}
		distinct = append(distinct, a.Signer)
	}
	if len(distinct) < threshold {
		return nil, ErrInsufficientAdminSignatures
	}

	for _, a := range approvals {
		if _, ok := members[a.Signer]; !ok {
			return nil, ErrUnauthorizedAdmin
		}
		if len(a.Signature) != ed25519.SignatureSize || !ed25519.Verify(a.Signer.PublicKey(), digest, a.Signature) {
			return nil, ErrUnauthorizedAdmin
		}
	}
	return distinct, nil
}
