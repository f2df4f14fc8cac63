package address

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"
)

func TestParse_RoundTrip(t *testing.T) {
	a := Derive("test", []byte("x"))
	got, err := Parse(a.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != a {
		t.Fatalf("got=%s want=%s", got, a)
	}
	got, err = Parse("0x" + strings.ToUpper(a.String()))
	if err != nil || got != a {
		t.Fatalf("prefixed upper-case parse failed: %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", strings.Repeat("zz", 32), strings.Repeat("00", 31)} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestDerive_SeedSeparation(t *testing.T) {
	owner := Derive("owner")
	if SessionVault(owner) == Escrow(owner) {
		t.Fatalf("session and escrow seeds must not collide")
	}
	if SessionVault(owner) != SessionVault(owner) {
		t.Fatalf("derivation must be deterministic")
	}
}

func TestMatchID_DependsOnAllSeeds(t *testing.T) {
	c := Derive("creator")
	base := MatchID(c, "chess", 100)
	if base == MatchID(c, "chess", 101) {
		t.Fatalf("timestamp ignored")
	}
	if base == MatchID(c, "go", 100) {
		t.Fatalf("game id ignored")
	}
	if base == MatchID(Derive("other"), "chess", 100) {
		t.Fatalf("creator ignored")
	}
}

func TestPublicKeyConversion(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	a := FromPublicKey(pub)
	if !a.PublicKey().Equal(pub) {
		t.Fatalf("public key mismatch")
	}
}

func TestJSONText(t *testing.T) {
	a := Derive("json")
	b, err := json.Marshal(struct {
		A Address `json:"a"`
	}{A: a})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		A Address `json:"a"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A != a {
		t.Fatalf("got=%s want=%s", out.A, a)
	}
}
