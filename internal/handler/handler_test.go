package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
	"wagerescrow/internal/auth"
	"wagerescrow/internal/cache"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/leaderboard"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/oracle"
	"wagerescrow/internal/repository/memory"
	"wagerescrow/internal/service"
)

const token = amount.LamportsPerToken

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	eng    *engine.Engine
	jwt    auth.JWT
	hub    *notify.Hub
	now    time.Time
	admins []ed25519.PrivateKey
	oracle ed25519.PrivateKey
}

func newKey(t *testing.T) (address.Address, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return address.FromPublicKey(pub), priv
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		t:   t,
		jwt: auth.JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour},
		hub: notify.NewHub(16),
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	store := memory.New()
	board := leaderboard.NewMemoryBoard()
	stats := &service.StatsService{Repo: store, Cache: cache.NewMemoryStore()}
	s.eng = &engine.Engine{
		Repo:     store,
		Ledger:   ledger.New(nil),
		Notifier: notify.Multi{Publishers: []notify.Publisher{s.hub, stats}},
		Board:    board,
		Clock:    func() time.Time { return s.now },
	}

	var admins []address.Address
	for i := 0; i < 3; i++ {
		a, priv := newKey(t)
		admins = append(admins, a)
		s.admins = append(s.admins, priv)
	}
	verifier, oraclePriv := newKey(t)
	s.oracle = oraclePriv
	if _, err := s.eng.Initialize(context.Background(), engine.InitializeParams{
		Treasury:     address.Derive("treasury"),
		ReferralPool: address.Derive("referral"),
		Verifier:     verifier,
		Admins:       admins,
		Fees:         fees.Default,
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	guard := Guard{JWT: s.jwt}
	r := gin.New()
	(&HealthHandler{Store: store}).Register(r)
	(&MatchHandler{Engine: s.eng, Guard: guard, Now: func() time.Time { return s.now }}).Register(r)
	(&SessionHandler{Engine: s.eng, Guard: guard}).Register(r)
	(&GovernanceHandler{Engine: s.eng}).Register(r)
	(&LedgerHandler{Engine: s.eng, Guard: guard}).Register(r)
	(&PlatformHandler{Engine: s.eng, Stats: stats}).Register(r)
	(&LeaderboardHandler{Board: board}).Register(r)
	(&AdminHandler{Engine: s.eng, Guard: guard}).Register(r)
	(&EventHandler{Repo: store, Hub: s.hub}).Register(r)
	s.router = r
	return s
}

func (s *testServer) tokenFor(addr address.Address, role string) string {
	s.t.Helper()
	tok, _, err := s.jwt.Sign(auth.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: addr.String()}})
	if err != nil {
		s.t.Fatalf("sign token: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, bearer string, body any) (int, apiEnvelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var env apiEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) player(balance int64) (address.Address, string) {
	s.t.Helper()
	a, _ := newKey(s.t)
	if balance > 0 {
		if _, err := s.eng.Fund(context.Background(), a, balance, "test"); err != nil {
			s.t.Fatalf("fund: %v", err)
		}
	}
	return a, s.tokenFor(a, auth.RolePlayer)
}

func (s *testServer) approvals(op governance.Operation, params []byte, idx ...int) []approvalRequest {
	s.t.Helper()
	digest, _, err := s.eng.GovernanceDigest(context.Background(), op, params)
	if err != nil {
		s.t.Fatalf("digest: %v", err)
	}
	out := make([]approvalRequest, 0, len(idx))
	for _, i := range idx {
		a := governance.Sign(s.admins[i], digest)
		out = append(out, approvalRequest{Signer: a.Signer.String(), Signature: hex.EncodeToString(a.Signature)})
	}
	return out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", string(raw), err)
	}
	return out
}

func TestMatchRoutes_CreateJoinSettle(t *testing.T) {
	s := newTestServer(t)
	creator, creatorTok := s.player(token)
	joiner, joinerTok := s.player(token)

	code, env := s.do(http.MethodPost, "/api/v1/matches", creatorTok, map[string]any{
		"game_id":            "Chess Blitz",
		"wager":              "1",
		"expires_in_seconds": 3600,
	})
	if code != http.StatusOK {
		t.Fatalf("create status=%d body=%+v", code, env)
	}
	m := decode[matchView](t, env.Data)
	if m.Creator != creator.String() || m.Status != "waiting_for_player" || m.WagerAmount != token {
		t.Fatalf("unexpected match %+v", m)
	}

	code, env = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/join", joinerTok, nil)
	if code != http.StatusOK {
		t.Fatalf("join status=%d body=%+v", code, env)
	}
	if got := decode[matchView](t, env.Data); got.Status != "in_progress" {
		t.Fatalf("status=%s want in_progress", got.Status)
	}

	hash := [32]byte{0x01}
	att := oracle.Attest(s.oracle, address.MustParse(m.ID), joiner, hash)
	oracleAddr := address.FromPublicKey(s.oracle.Public().(ed25519.PublicKey))
	code, env = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/result", s.tokenFor(oracleAddr, auth.RoleOracle), submitResultRequest{
		Winner:     joiner.String(),
		ResultHash: hex.EncodeToString(hash[:]),
		Signature:  hex.EncodeToString(att.Signature),
		Envelope:   hex.EncodeToString(att.Envelope),
	})
	if code != http.StatusOK {
		t.Fatalf("result status=%d body=%+v", code, env)
	}
	done := decode[matchView](t, env.Data)
	if done.Status != "completed" || done.WinnerAmount != 1_870_000_000 {
		t.Fatalf("unexpected settlement %+v", done)
	}

	code, env = s.do(http.MethodGet, "/api/v1/ledger/"+joiner.String(), "", nil)
	if code != http.StatusOK {
		t.Fatalf("ledger status=%d", code)
	}
	acct := decode[struct {
		Balance int64 `json:"balance"`
	}](t, env.Data)
	if acct.Balance != 1_870_000_000 {
		t.Fatalf("balance=%d want=1870000000", acct.Balance)
	}

	code, env = s.do(http.MethodGet, "/api/v1/leaderboard?by=wins", "", nil)
	if code != http.StatusOK {
		t.Fatalf("leaderboard status=%d", code)
	}
	top := decode[[]leaderboard.Entry](t, env.Data)
	if len(top) != 1 || top[0].Address != joiner.String() || top[0].Score != 1 {
		t.Fatalf("leaderboard=%+v", top)
	}

	code, env = s.do(http.MethodGet, "/api/v1/matches?status=completed", "", nil)
	if code != http.StatusOK {
		t.Fatalf("list status=%d", code)
	}
	if total, _ := env.Meta["total"].(float64); total != 1 {
		t.Fatalf("total=%v want=1", env.Meta["total"])
	}
}

func TestMatchRoutes_RoleChecks(t *testing.T) {
	s := newTestServer(t)
	a, playerTok := s.player(token)
	body := map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60}

	cases := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{name: "no token", path: "/api/v1/matches", want: http.StatusUnauthorized},
		{name: "bad token", path: "/api/v1/matches", bearer: "garbage", want: http.StatusUnauthorized},
		{name: "oracle cannot create", path: "/api/v1/matches", bearer: s.tokenFor(a, auth.RoleOracle), want: http.StatusForbidden},
		{name: "player cannot settle", path: "/api/v1/matches/" + a.String() + "/result", bearer: playerTok, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := s.do(http.MethodPost, tc.path, tc.bearer, body)
			if code != tc.want {
				t.Fatalf("got=%d want=%d", code, tc.want)
			}
		})
	}
}

func TestMatchRoutes_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	_, tok := s.player(token)
	_, poorTok := s.player(0)

	code, env := s.do(http.MethodPost, "/api/v1/matches", tok, map[string]any{"game_id": "go", "wager_amount": 1, "expires_in_seconds": 60})
	if code != http.StatusBadRequest || env.Meta["kind"] != string(engine.KindPolicy) {
		t.Fatalf("tiny wager got=%d meta=%v", code, env.Meta)
	}

	code, env = s.do(http.MethodPost, "/api/v1/matches", poorTok, map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60})
	if code != http.StatusConflict || env.Meta["kind"] != string(engine.KindFunds) {
		t.Fatalf("unfunded got=%d meta=%v", code, env.Meta)
	}

	code, env = s.do(http.MethodPost, "/api/v1/matches", tok, map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60})
	if code != http.StatusOK {
		t.Fatalf("create got=%d", code)
	}
	m := decode[matchView](t, env.Data)
	code, _ = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/join", tok, nil)
	if code != http.StatusConflict {
		t.Fatalf("self join got=%d want=409", code)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/refund", "", nil)
	if code != http.StatusConflict {
		t.Fatalf("early refund got=%d want=409", code)
	}

	missing := address.Derive("missing")
	code, _ = s.do(http.MethodGet, "/api/v1/matches/"+missing.String(), "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing match got=%d want=404", code)
	}
	code, _ = s.do(http.MethodGet, "/api/v1/matches/not-an-address", "", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad id got=%d want=400", code)
	}
}

func TestMatchRoutes_ExpiredRefundIsPermissionless(t *testing.T) {
	s := newTestServer(t)
	creator, tok := s.player(token)
	code, env := s.do(http.MethodPost, "/api/v1/matches", tok, map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60})
	if code != http.StatusOK {
		t.Fatalf("create got=%d", code)
	}
	m := decode[matchView](t, env.Data)

	s.now = s.now.Add(2 * time.Minute)
	code, env = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/refund", "", nil)
	if code != http.StatusOK {
		t.Fatalf("refund got=%d body=%+v", code, env)
	}
	if got := decode[matchView](t, env.Data); got.Status != "refunded" || got.RefundAmount != token {
		t.Fatalf("unexpected refund %+v", got)
	}
	bal, _ := s.eng.Balance(context.Background(), creator)
	if bal != token {
		t.Fatalf("creator balance=%d want=%d", bal, token)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/matches/"+m.ID+"/refund", "", nil)
	if code != http.StatusConflict {
		t.Fatalf("double refund got=%d want=409", code)
	}
}

func TestSessionRoutes_DepositWithdraw(t *testing.T) {
	s := newTestServer(t)
	owner, tok := s.player(2 * token)

	if code, env := s.do(http.MethodPost, "/api/v1/sessions", tok, nil); code != http.StatusOK {
		t.Fatalf("create got=%d body=%+v", code, env)
	}
	if code, _ := s.do(http.MethodPost, "/api/v1/sessions", tok, nil); code != http.StatusConflict {
		t.Fatalf("duplicate create got=%d want=409", code)
	}
	code, env := s.do(http.MethodPost, "/api/v1/sessions/deposit", tok, map[string]any{"tokens": "1.5"})
	if code != http.StatusOK {
		t.Fatalf("deposit got=%d body=%+v", code, env)
	}
	if v := decode[sessionView](t, env.Data); v.Balance != 1_500_000_000 || v.BalanceTokens != "1.5" {
		t.Fatalf("vault=%+v", v)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/sessions/withdraw", tok, map[string]any{"amount": 2 * token})
	if code != http.StatusConflict {
		t.Fatalf("overdraw got=%d want=409", code)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/sessions/withdraw", tok, map[string]any{"amount": 1, "tokens": "1"})
	if code != http.StatusBadRequest {
		t.Fatalf("ambiguous amount got=%d want=400", code)
	}
	code, _ = s.do(http.MethodPost, "/api/v1/sessions/withdraw", tok, map[string]any{"amount": token / 2})
	if code != http.StatusOK {
		t.Fatalf("withdraw got=%d", code)
	}
	code, env = s.do(http.MethodGet, "/api/v1/sessions/"+owner.String(), "", nil)
	if code != http.StatusOK {
		t.Fatalf("get got=%d", code)
	}
	if v := decode[sessionView](t, env.Data); v.Balance != token || v.TotalWithdrawn != token/2 {
		t.Fatalf("vault=%+v", v)
	}
}

func TestGovernanceRoutes_PauseNeedsTwoAdmins(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/api/v1/admin/pause", "", approvalsRequest{
		Approvals: s.approvals(governance.OpEmergencyPause, nil, 0),
	})
	if code != http.StatusForbidden {
		t.Fatalf("single approval got=%d want=403", code)
	}
	if env.Message != governance.ErrInsufficientAdminSignatures.Error() {
		t.Fatalf("message=%q", env.Message)
	}

	code, env = s.do(http.MethodGet, "/api/v1/admin/digest?operation=emergency_pause", "", nil)
	if code != http.StatusOK {
		t.Fatalf("digest got=%d", code)
	}
	d := decode[digestResponse](t, env.Data)
	if d.ConfigVersion != 1 || len(d.Digest) != 64 {
		t.Fatalf("digest=%+v", d)
	}

	code, env = s.do(http.MethodPost, "/api/v1/admin/pause", "", approvalsRequest{
		Approvals: s.approvals(governance.OpEmergencyPause, nil, 0, 2),
	})
	if code != http.StatusOK {
		t.Fatalf("pause got=%d body=%+v", code, env)
	}
	if p := decode[platformView](t, env.Data); !p.IsPaused || p.Version != 2 {
		t.Fatalf("platform=%+v", p)
	}

	_, tok := s.player(token)
	code, env = s.do(http.MethodPost, "/api/v1/matches", tok, map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60})
	if code != http.StatusBadRequest || env.Message != engine.ErrPlatformPaused.Error() {
		t.Fatalf("paused create got=%d msg=%q", code, env.Message)
	}
}

func TestGovernanceRoutes_UnpauseWhenRunningIsPolicyError(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(http.MethodPost, "/api/v1/admin/unpause", "", approvalsRequest{
		Approvals: s.approvals(governance.OpEmergencyUnpause, nil, 0, 1),
	})
	if code != http.StatusBadRequest {
		t.Fatalf("unpause got=%d want=400", code)
	}
	if env.Message != engine.ErrPlatformPaused.Error() || env.Meta["kind"] != string(engine.KindPolicy) {
		t.Fatalf("body=%+v", env)
	}
}

func TestGovernanceRoutes_UpdateFees(t *testing.T) {
	s := newTestServer(t)
	params := governance.FeesParams(500, 400, 100)
	code, env := s.do(http.MethodPost, "/api/v1/admin/fees", "", feesRequest{
		PlatformFeeBps: 500,
		TreasuryFeeBps: 400,
		ReferralFeeBps: 100,
		Approvals:      s.approvals(governance.OpUpdateFees, params, 1, 2),
	})
	if code != http.StatusOK {
		t.Fatalf("fees got=%d body=%+v", code, env)
	}
	if p := decode[platformView](t, env.Data); p.PlatformFeeBps != 500 || p.TreasuryFeeBps != 400 {
		t.Fatalf("platform=%+v", p)
	}

	// Approvals signed for different parameters do not authorize this change.
	code, _ = s.do(http.MethodPost, "/api/v1/admin/fees", "", feesRequest{
		PlatformFeeBps: 900,
		TreasuryFeeBps: 800,
		ReferralFeeBps: 100,
		Approvals:      s.approvals(governance.OpUpdateFees, params, 1, 2),
	})
	if code != http.StatusForbidden {
		t.Fatalf("mismatched params got=%d want=403", code)
	}
}

func TestLedgerRoutes_FundRequiresOperator(t *testing.T) {
	s := newTestServer(t)
	target, playerTok := s.player(0)
	op, _ := newKey(t)
	body := map[string]any{"address": target.String(), "tokens": "2"}

	if code, _ := s.do(http.MethodPost, "/api/v1/ledger/fund", playerTok, body); code != http.StatusForbidden {
		t.Fatalf("player fund got=%d want=403", code)
	}
	code, env := s.do(http.MethodPost, "/api/v1/ledger/fund", s.tokenFor(op, auth.RoleOperator), body)
	if code != http.StatusOK {
		t.Fatalf("operator fund got=%d body=%+v", code, env)
	}
	bal, _ := s.eng.Balance(context.Background(), target)
	if bal != 2*token {
		t.Fatalf("balance=%d want=%d", bal, 2*token)
	}
}

func TestAdminRoutes_AlertsAndActions(t *testing.T) {
	s := newTestServer(t)
	op, _ := newKey(t)
	opTok := s.tokenFor(op, auth.RoleOperator)

	if code, _ := s.do(http.MethodPost, "/api/v1/admin/pause", "", approvalsRequest{
		Approvals: s.approvals(governance.OpEmergencyPause, nil, 0, 1),
	}); code != http.StatusOK {
		t.Fatalf("pause got=%d", code)
	}

	code, env := s.do(http.MethodGet, "/api/v1/admin/alerts?acknowledged=false", opTok, nil)
	if code != http.StatusOK {
		t.Fatalf("alerts got=%d", code)
	}
	alerts := decode[[]alertView](t, env.Data)
	if len(alerts) != 1 || alerts[0].Level != "critical" {
		t.Fatalf("alerts=%+v", alerts)
	}

	code, env = s.do(http.MethodPost, "/api/v1/admin/alerts/"+alerts[0].ID+"/ack", opTok, nil)
	if code != http.StatusOK {
		t.Fatalf("ack got=%d", code)
	}
	if a := decode[alertView](t, env.Data); !a.Acknowledged || a.AcknowledgedBy == nil || *a.AcknowledgedBy != op.String() {
		t.Fatalf("ack=%+v", a)
	}
	if code, _ := s.do(http.MethodPost, "/api/v1/admin/alerts/nope/ack", opTok, nil); code != http.StatusNotFound {
		t.Fatalf("missing alert got=%d want=404", code)
	}

	code, env = s.do(http.MethodGet, "/api/v1/admin/actions", opTok, nil)
	if code != http.StatusOK {
		t.Fatalf("actions got=%d", code)
	}
	actions := decode[[]adminActionView](t, env.Data)
	if len(actions) != 1 || actions[0].Action != string(governance.OpEmergencyPause) {
		t.Fatalf("actions=%+v", actions)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/admin/actions", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous actions got=%d want=401", code)
	}
}

func TestPlatformRoutes_StatsAndHealth(t *testing.T) {
	s := newTestServer(t)
	_, tok := s.player(token)
	if code, _ := s.do(http.MethodPost, "/api/v1/matches", tok, map[string]any{"game_id": "go", "wager_amount": token, "expires_in_seconds": 60}); code != http.StatusOK {
		t.Fatalf("create got=%d", code)
	}

	code, env := s.do(http.MethodGet, "/api/v1/stats", "", nil)
	if code != http.StatusOK {
		t.Fatalf("stats got=%d", code)
	}
	st := decode[service.PlatformStats](t, env.Data)
	if st.OpenMatches != 1 || st.TotalMatches != 0 || st.IsPaused {
		t.Fatalf("stats=%+v", st)
	}

	code, env = s.do(http.MethodGet, "/api/v1/platform", "", nil)
	if code != http.StatusOK {
		t.Fatalf("platform got=%d", code)
	}
	if p := decode[platformView](t, env.Data); len(p.Admins) != 3 || p.PlatformFeeBps != fees.Default.PlatformBps {
		t.Fatalf("platform=%+v", p)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz got=%d", w.Code)
	}
}

func TestEventRoutes_ListPersisted(t *testing.T) {
	s := newTestServer(t)
	target, _ := s.player(token)

	code, env := s.do(http.MethodGet, "/api/v1/events?event="+notify.EventLedgerFunded, "", nil)
	if code != http.StatusOK {
		t.Fatalf("events got=%d", code)
	}
	items := decode[[]eventRecordView](t, env.Data)
	if len(items) != 1 || items[0].Ref != target.String() {
		t.Fatalf("events=%+v", items)
	}
	if !strings.Contains(string(items[0].Payload), `"amount"`) {
		t.Fatalf("payload=%s", items[0].Payload)
	}
	if code, _ := s.do(http.MethodGet, "/api/v1/events?since=yesterday", "", nil); code != http.StatusBadRequest {
		t.Fatalf("bad since got=%d want=400", code)
	}
}

func TestEngineError_StatusByKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{engine.ErrWagerTooLow, http.StatusBadRequest},
		{engine.ErrInvalidGameID, http.StatusBadRequest},
		{engine.ErrMatchNotAvailable, http.StatusConflict},
		{engine.ErrInsufficientSessionBalance, http.StatusConflict},
		{oracle.ErrSignatureMismatch, http.StatusForbidden},
		{engine.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", engine.ErrMatchNotFound), http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		EngineError(c, tc.err)
		if w.Code != tc.want {
			t.Fatalf("%v: got=%d want=%d", tc.err, w.Code, tc.want)
		}
	}
}
