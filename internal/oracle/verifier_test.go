package oracle

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"wagerescrow/internal/address"
)

func newOracle(t *testing.T) (ed25519.PrivateKey, address.Address) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return priv, address.FromPublicKey(pub)
}

func TestVerify_Valid(t *testing.T) {
	priv, verifier := newOracle(t)
	matchID := address.Derive("m1")
	winner := address.Derive("alice")
	hash := [32]byte{1, 2, 3}

	att := Attest(priv, matchID, winner, hash)
	msg := ResultMessage(matchID, winner, hash)
	if len(msg) != MessageSize {
		t.Fatalf("message size=%d want=%d", len(msg), MessageSize)
	}
	if err := (Ed25519Verifier{}).Verify(verifier, msg, att.Signature, att.Envelope); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerify_RejectsCrossMatchReplay(t *testing.T) {
	priv, verifier := newOracle(t)
	winner := address.Derive("alice")
	hash := [32]byte{9}

	att := Attest(priv, address.Derive("matchA"), winner, hash)
	other := ResultMessage(address.Derive("matchB"), winner, hash)
	err := (Ed25519Verifier{}).Verify(verifier, other, att.Signature, att.Envelope)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerify_RejectsWrongVerifier(t *testing.T) {
	priv, _ := newOracle(t)
	_, configured := newOracle(t)
	matchID, winner := address.Derive("m"), address.Derive("w")

	att := Attest(priv, matchID, winner, [32]byte{})
	msg := ResultMessage(matchID, winner, [32]byte{})
	err := (Ed25519Verifier{}).Verify(configured, msg, att.Signature, att.Envelope)
	if !errors.Is(err, ErrPublicKeyMismatch) {
		t.Fatalf("expected ErrPublicKeyMismatch, got %v", err)
	}
}

func TestVerify_EnvelopeChecks(t *testing.T) {
	priv, verifier := newOracle(t)
	matchID, winner := address.Derive("m"), address.Derive("w")
	msg := ResultMessage(matchID, winner, [32]byte{})
	att := Attest(priv, matchID, winner, [32]byte{})

	short := att.Envelope[:EnvelopeSize-1]
	if err := (Ed25519Verifier{}).Verify(verifier, msg, att.Signature, short); !errors.Is(err, ErrInvalidSignatureData) {
		t.Fatalf("short envelope: got %v", err)
	}

	multi := append([]byte(nil), att.Envelope...)
	multi[0] = 2
	if err := (Ed25519Verifier{}).Verify(verifier, msg, att.Signature, multi); !errors.Is(err, ErrInvalidSignatureCount) {
		t.Fatalf("count: got %v", err)
	}

	otherSig := append([]byte(nil), att.Signature...)
	otherSig[0] ^= 0xff
	if err := (Ed25519Verifier{}).Verify(verifier, msg, otherSig, att.Envelope); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("substituted signature: got %v", err)
	}
}

func TestVerify_RejectsForgedEnvelope(t *testing.T) {
	_, verifier := newOracle(t)
	matchID, winner := address.Derive("m"), address.Derive("w")
	msg := ResultMessage(matchID, winner, [32]byte{})
	sig := make([]byte, SignatureSize)
	env := Envelope(sig, verifier.PublicKey(), msg)
	if err := (Ed25519Verifier{}).Verify(verifier, msg, sig, env); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}
