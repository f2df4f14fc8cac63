package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wagerescrow/internal/address"
	"wagerescrow/internal/cache"
)

var (
	ErrChallengeNotFound = errors.New("challenge not found or expired")
	ErrBadSignature      = errors.New("challenge signature invalid")
	ErrRoleNotAllowed    = errors.New("role not allowed for address")
)

type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Token struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Challenger runs the two-step login: the client asks for a nonce, signs the
// returned message with the ed25519 key behind its address, and trades the
// signature for a JWT. Nonces live in the cache and are consumed on use.
type Challenger struct {
	Cache     cache.Store
	JWT       JWT
	TTL       time.Duration
	Oracles   map[address.Address]struct{}
	Operators map[address.Address]struct{}
	Now       func() time.Time
}

func NewChallenger(store cache.Store, j JWT, ttl time.Duration, oracles, operators []string) (*Challenger, error) {
	ch := &Challenger{
		Cache:     store,
		JWT:       j,
		TTL:       ttl,
		Oracles:   map[address.Address]struct{}{},
		Operators: map[address.Address]struct{}{},
	}
	for _, s := range oracles {
		a, err := address.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("auth.oracles: %w", err)
		}
		ch.Oracles[a] = struct{}{}
	}
	for _, s := range operators {
		a, err := address.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("auth.operators: %w", err)
		}
		ch.Operators[a] = struct{}{}
	}
	return ch, nil
}

func ChallengeMessage(addr address.Address, nonce string) string {
	return "wagerescrow login " + addr.String() + " " + nonce
}

func challengeKey(addr address.Address) string {
	return "auth:challenge:" + addr.String()
}

func (ch *Challenger) now() time.Time {
	if ch.Now != nil {
		return ch.Now().UTC()
	}
	return time.Now().UTC()
}

func (ch *Challenger) Issue(ctx context.Context, addr address.Address) (Challenge, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return Challenge{}, err
	}
	nonce := hex.EncodeToString(raw[:])
	ttl := ch.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := ch.Cache.Set(ctx, challengeKey(addr), []byte(nonce), ttl); err != nil {
		return Challenge{}, err
	}
	return Challenge{
		Address:   addr.String(),
		Nonce:     nonce,
		Message:   ChallengeMessage(addr, nonce),
		ExpiresAt: ch.now().Add(ttl),
	}, nil
}

// Login verifies the signed challenge and issues a token for role. An empty
// role means player.
func (ch *Challenger) Login(ctx context.Context, addr address.Address, signatureHex, role string) (Token, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = RolePlayer
	}
	if !ch.allowed(addr, role) {
		return Token{}, ErrRoleNotAllowed
	}
	nonce, found, err := ch.Cache.Take(ctx, challengeKey(addr))
	if err != nil {
		return Token{}, err
	}
	if !found {
		return Token{}, ErrChallengeNotFound
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return Token{}, ErrBadSignature
	}
	if !ed25519.Verify(addr.PublicKey(), []byte(ChallengeMessage(addr, string(nonce))), sig) {
		return Token{}, ErrBadSignature
	}
	tok, exp, err := ch.JWT.Sign(Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: addr.String()},
	})
	if err != nil {
		return Token{}, err
	}
	return Token{Token: tok, Role: role, ExpiresAt: exp}, nil
}

func (ch *Challenger) allowed(addr address.Address, role string) bool {
	switch role {
	case RolePlayer:
		return true
	case RoleOracle:
		_, ok := ch.Oracles[addr]
		return ok
	case RoleOperator:
		_, ok := ch.Operators[addr]
		return ok
	default:
		return false
	}
}
