// Package address defines the 32-byte identities used for players, platform
// accounts, oracle and admin keys, and the deterministic sub-accounts derived
// from them.
package address

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

const Size = 32

type Address [Size]byte

var ErrInvalid = errors.New("invalid address")

// External is the counterparty of on-ramp credits. It is the only ledger
// account allowed to carry a negative balance.
var External = Derive("external")

func Parse(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if len(s) != hex.EncodedLen(Size) {
		return a, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalid, hex.EncodedLen(Size), len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return a, nil
}

func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func FromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	copy(a[:], pub)
	return a
}

func (a Address) PublicKey() ed25519.PublicKey {
	out := make([]byte, Size)
	copy(out, a[:])
	return ed25519.PublicKey(out)
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Derive returns the deterministic sub-account for a named seed:
// keccak256(seed || parts...).
func Derive(seed string, parts ...[]byte) Address {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(seed))
	data = append(data, parts...)
	var a Address
	copy(a[:], crypto.Keccak256(data...))
	return a
}

// MatchID derives a match identity from its creator, game and creation time.
func MatchID(creator Address, gameID string, createdAtUnixNano int64) Address {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createdAtUnixNano))
	return Derive("match", creator[:], []byte(gameID), ts[:])
}

func Escrow(matchID Address) Address {
	return Derive("escrow", matchID[:])
}

func SessionVault(owner Address) Address {
	return Derive("session", owner[:])
}
