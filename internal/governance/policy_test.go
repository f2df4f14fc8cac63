package governance

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"wagerescrow/internal/address"
)

func admins(t *testing.T, n int) ([]ed25519.PrivateKey, []address.Address) {
	t.Helper()
	keys := make([]ed25519.PrivateKey, 0, n)
	addrs := make([]address.Address, 0, n)
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("keygen: %v", err)
		}
		keys = append(keys, priv)
		addrs = append(addrs, address.FromPublicKey(pub))
	}
	return keys, addrs
}

func TestAuthorize_TwoDistinctSigners(t *testing.T) {
	keys, addrs := admins(t, 3)
	p, err := NewPolicy(addrs)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	digest := Digest(OpEmergencyPause, 1, nil)

	for _, pair := range [][2]int{{0, 1}, {1, 2}, {0, 2}} {
		signers, err := p.Authorize(digest, []Approval{Sign(keys[pair[0]], digest), Sign(keys[pair[1]], digest)})
		if err != nil {
			t.Fatalf("pair %v: %v", pair, err)
		}
		if len(signers) != 2 || signers[0] != addrs[pair[0]] || signers[1] != addrs[pair[1]] {
			t.Fatalf("pair %v: unexpected signers %v", pair, signers)
		}
	}
}

func TestAuthorize_RejectsSingleOrDuplicate(t *testing.T) {
	keys, addrs := admins(t, 3)
	p, _ := NewPolicy(addrs)
	digest := Digest(OpEmergencyPause, 1, nil)

	if _, err := p.Authorize(digest, nil); !errors.Is(err, ErrInsufficientAdminSignatures) {
		t.Fatalf("zero approvals: got %v", err)
	}
	one := Sign(keys[0], digest)
	if _, err := p.Authorize(digest, []Approval{one}); !errors.Is(err, ErrInsufficientAdminSignatures) {
		t.Fatalf("one approval: got %v", err)
	}
	if _, err := p.Authorize(digest, []Approval{one, one}); !errors.Is(err, ErrInsufficientAdminSignatures) {
		t.Fatalf("duplicate approval: got %v", err)
	}
}

func TestAuthorize_RejectsOutsiderAndBadSignature(t *testing.T) {
	keys, addrs := admins(t, 3)
	outsiderKeys, _ := admins(t, 1)
	p, _ := NewPolicy(addrs)
	digest := Digest(OpUpdateFees, 4, FeesParams(650, 550, 100))

	_, err := p.Authorize(digest, []Approval{Sign(keys[0], digest), Sign(outsiderKeys[0], digest)})
	if !errors.Is(err, ErrUnauthorizedAdmin) {
		t.Fatalf("outsider: got %v", err)
	}

	other := Digest(OpUpdateFees, 4, FeesParams(1000, 1000, 0))
	_, err = p.Authorize(digest, []Approval{Sign(keys[0], digest), Sign(keys[1], other)})
	if !errors.Is(err, ErrUnauthorizedAdmin) {
		t.Fatalf("signature over other params: got %v", err)
	}
}

func TestDigest_BindsOperationParamsAndVersion(t *testing.T) {
	base := Digest(OpUpdateFees, 1, FeesParams(650, 550, 100))
	if bytes.Equal(base, Digest(OpUpdateFees, 2, FeesParams(650, 550, 100))) {
		t.Fatalf("version not bound")
	}
	if bytes.Equal(base, Digest(OpUpdateFees, 1, FeesParams(650, 500, 150))) {
		t.Fatalf("params not bound")
	}
	if bytes.Equal(Digest(OpEmergencyPause, 1, nil), Digest(OpEmergencyUnpause, 1, nil)) {
		t.Fatalf("operation not bound")
	}
}

func TestValidateSignerSet(t *testing.T) {
	_, addrs := admins(t, 3)
	if err := ValidateSignerSet(addrs); err != nil {
		t.Fatalf("valid set: %v", err)
	}
	if err := ValidateSignerSet(addrs[:2]); !errors.Is(err, ErrInvalidSignerSet) {
		t.Fatalf("short set: got %v", err)
	}
	if err := ValidateSignerSet([]address.Address{addrs[0], addrs[0], addrs[1]}); !errors.Is(err, ErrInvalidSignerSet) {
		t.Fatalf("duplicate set: got %v", err)
	}
}
