package cli

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wagerescrow/internal/address"
	"wagerescrow/internal/apiclient"
	"wagerescrow/internal/auth"
	"wagerescrow/internal/cli/clicfg"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/oracle"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WAGERCTL_DIR", dir)
	t.Setenv("WAGERCTL_API_BASE", "")
	t.Setenv("WAGERCTL_KEY", "")
	t.Setenv("WAGERCTL_TOKEN", "")
	return dir
}

func newKeyFile(t *testing.T, dir, name string) (string, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	path := filepath.Join(dir, name)
	if _, err := writeKey(path, priv); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path, priv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func randomAddress(t *testing.T) address.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return address.FromPublicKey(pub)
}

func writeEnvelope(w http.ResponseWriter, status int, data any, meta map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"code": 0, "message": "ok"}
	if status >= 300 {
		body["code"] = status
		body["message"] = data
	} else if data != nil {
		body["data"] = data
	}
	if meta != nil {
		body["meta"] = meta
	}
	_ = json.NewEncoder(w).Encode(body)
}

func TestKeyFile_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path, priv := newKeyFile(t, dir, "k.json")
	got, addr, err := loadKey(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, priv) {
		t.Fatalf("private key changed")
	}
	if addr != address.FromPublicKey(priv.Public().(ed25519.PublicKey)) {
		t.Fatalf("addr=%s", addr)
	}
	if _, _, err := loadKey(""); err == nil {
		t.Fatalf("expected error for empty key path")
	}
}

func TestOracleAttest_SignatureVerifies(t *testing.T) {
	dir := isolate(t)
	keyPath, priv := newKeyFile(t, dir, "oracle.json")
	matchID := randomAddress(t)
	winner := randomAddress(t)

	out, err := run(t, "oracle", "attest", "--api-base", "http://unused", "--key", keyPath,
		"--match", matchID.String(), "--winner", winner.String(), "--result-data", "p1 wins 3-1")
	if err != nil {
		t.Fatalf("attest: %v", err)
	}
	var att attestation
	if err := json.Unmarshal([]byte(out), &att); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}

	hash, err := resultHash(att.ResultHash, "")
	if err != nil {
		t.Fatalf("result hash: %v", err)
	}
	sig, _ := hex.DecodeString(att.Signature)
	env, _ := hex.DecodeString(att.Envelope)
	verifier := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if att.Verifier != verifier.String() {
		t.Fatalf("verifier=%s want=%s", att.Verifier, verifier)
	}
	msg := oracle.ResultMessage(matchID, winner, hash)
	if err := (oracle.Ed25519Verifier{}).Verify(verifier, msg, sig, env); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestResultHash_Inputs(t *testing.T) {
	if _, err := resultHash("", ""); err == nil {
		t.Fatalf("expected error without hash or data")
	}
	if _, err := resultHash("abcd", ""); err == nil {
		t.Fatalf("expected error for short hash")
	}
	want := strings.Repeat("ab", 32)
	got, err := resultHash("0x"+want, "ignored")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("got=%x", got)
	}
}

func TestAdminApprove_SignsDigest(t *testing.T) {
	dir := isolate(t)
	keyPath, priv := newKeyFile(t, dir, "admin.json")
	digest := governance.Digest(governance.OpEmergencyPause, 3, nil)

	out, err := run(t, "admin", "approve", "--api-base", "http://unused", "--key", keyPath,
		"--digest", "0x"+hex.EncodeToString(digest))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sig, _ := hex.DecodeString(got["signature"])
	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), digest, sig) {
		t.Fatalf("signature does not verify")
	}
	ap, err := parseApproval(got["approval"])
	if err != nil {
		t.Fatalf("parse approval: %v", err)
	}
	if ap.Signer != got["signer"] {
		t.Fatalf("signer=%s want=%s", ap.Signer, got["signer"])
	}
}

func TestParseApproval_Rejects(t *testing.T) {
	cases := []string{"", "nocolon", "zz:00", randomAddress(t).String() + ":xyz", randomAddress(t).String() + ":"}
	for _, c := range cases {
		if _, err := parseApproval(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestAdminPause_SignsWithKeyFiles(t *testing.T) {
	dir := isolate(t)
	k1, _ := newKeyFile(t, dir, "a1.json")
	k2, _ := newKeyFile(t, dir, "a2.json")
	digest := governance.Digest(governance.OpEmergencyPause, 7, nil)

	var posted struct {
		Approvals []approval `json:"approvals"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/admin/digest":
			if r.URL.Query().Get("operation") != string(governance.OpEmergencyPause) {
				writeEnvelope(w, http.StatusBadRequest, "bad operation", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, map[string]any{
				"operation":      "emergency_pause",
				"digest":         hex.EncodeToString(digest),
				"config_version": 7,
			}, nil)
		case "/api/v1/admin/pause":
			_ = json.NewDecoder(r.Body).Decode(&posted)
			writeEnvelope(w, http.StatusOK, map[string]any{"is_paused": true}, nil)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	if _, err := run(t, "admin", "pause", "--api-base", srv.URL, "--sign-with", k1, "--sign-with", k2); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if len(posted.Approvals) != 2 {
		t.Fatalf("approvals=%d want=2", len(posted.Approvals))
	}
	for _, ap := range posted.Approvals {
		signer, err := address.Parse(ap.Signer)
		if err != nil {
			t.Fatalf("signer: %v", err)
		}
		sig, _ := hex.DecodeString(ap.Signature)
		if !ed25519.Verify(signer.PublicKey(), digest, sig) {
			t.Fatalf("approval from %s does not verify", ap.Signer)
		}
	}
}

func TestAuthLogin_StoresCredentialsAndReusesToken(t *testing.T) {
	dir := isolate(t)
	keyPath, priv := newKeyFile(t, dir, "player.json")
	addr := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	var sessionAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/challenge":
			writeEnvelope(w, http.StatusOK, map[string]any{
				"address": addr.String(),
				"nonce":   "n1",
				"message": auth.ChallengeMessage(addr, "n1"),
			}, nil)
		case "/api/v1/auth/login":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			sig, _ := hex.DecodeString(req["signature"])
			if !ed25519.Verify(addr.PublicKey(), []byte(auth.ChallengeMessage(addr, "n1")), sig) {
				writeEnvelope(w, http.StatusUnauthorized, "bad signature", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, map[string]any{
				"token":      "tok-1",
				"role":       req["role"],
				"expires_at": expires,
			}, nil)
		case "/api/v1/sessions":
			sessionAuth = r.Header.Get("Authorization")
			writeEnvelope(w, http.StatusOK, map[string]any{"owner": addr.String()}, nil)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	if _, err := run(t, "auth", "login", "--api-base", srv.URL, "--key", keyPath, "--role", "player"); err != nil {
		t.Fatalf("login: %v", err)
	}
	cred, err := clicfg.LoadCredentials()
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if cred.Token != "tok-1" || cred.Role != "player" || cred.Address != addr.String() {
		t.Fatalf("unexpected credentials %+v", cred)
	}

	if _, err := run(t, "session", "create", "--api-base", srv.URL); err != nil {
		t.Fatalf("session create: %v", err)
	}
	if sessionAuth != "Bearer tok-1" {
		t.Fatalf("authorization=%q", sessionAuth)
	}
}

func TestBearer_MissingTokenWithoutKey(t *testing.T) {
	isolate(t)
	o := &Options{APIBase: "http://unused"}
	if _, err := o.bearer(); err == nil {
		t.Fatalf("expected error without token or key")
	}
	o.Token = " explicit "
	tok, err := o.bearer()
	if err != nil || tok != "explicit" {
		t.Fatalf("tok=%q err=%v", tok, err)
	}
}

func TestMatchRefund_SurfacesErrorKind(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, "match not expired", map[string]any{"kind": "state"})
	}))
	defer srv.Close()

	_, err := run(t, "match", "refund", randomAddress(t).String(), "--api-base", srv.URL)
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Kind != "state" || apiErr.Message != "match not expired" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestMatchList_TextOutput(t *testing.T) {
	isolate(t)
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, []map[string]any{{"id": "m1", "status": "waiting"}}, map[string]any{"total": 1})
	}))
	defer srv.Close()

	out, err := run(t, "match", "list", "--api-base", srv.URL, "--status", "waiting", "-o", "text")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(query, "status=waiting") {
		t.Fatalf("query=%q", query)
	}
	if out != "id: m1\nstatus: waiting\n" {
		t.Fatalf("out=%q", out)
	}
}

func TestStreamURL(t *testing.T) {
	got, err := streamURL("https://escrow.example/", "MatchCompleted,MatchRefunded")
	if err != nil {
		t.Fatalf("stream url: %v", err)
	}
	want := "wss://escrow.example/api/v1/events/stream?event=MatchCompleted%2CMatchRefunded"
	if got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
	if _, err := streamURL("ftp://x", ""); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}
