package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/render"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
)

type testEnv struct {
	srv    *Server
	store  *memory.Store
	ledger *services.LedgerService
	admin  core.User
	member core.User
}

const testPassword = "s3cret-pass"

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	ledgerSvc := services.NewLedgerService(store, auth.NewHasher(bcrypt.MinCost), nil)
	clock := func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	statements := services.NewStatementService(store, render.NewFormatter("Rs."), services.WithStatementClock(clock))
	tokens := auth.NewTokenIssuer("0123456789abcdef", time.Hour)

	admin, err := ledgerSvc.CreateUser(ctx, services.NewUser{Name: "Admin", Email: "admin@example.com", Password: testPassword, Role: core.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	member, err := ledgerSvc.CreateUser(ctx, services.NewUser{Name: "Jane Doe", Email: "jane@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	opts.Store = store
	srv := NewServer(":0", ledgerSvc, statements, tokens, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{srv: srv, store: store, ledger: ledgerSvc, admin: admin, member: member}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status=%d body=%s", email, rr.Code, rr.Body.String())
	}
	var resp loginResponse
	decode(t, rr, &resp)
	if resp.Token == "" {
		t.Fatalf("empty token")
	}
	return resp.Token
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func (e *testEnv) seedScenario(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		{Amount: core.Money{Cents: 3000}, Kind: core.Debit, Description: "Groceries", CreatedAt: time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 10000}, Kind: core.Credit, Description: "Refund", CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 2000}, Kind: core.Debit, Description: "A very long description that will be cut", CreatedAt: time.Date(2024, 3, 12, 23, 0, 0, 0, time.UTC)},
		{Amount: core.Money{Cents: 9900}, Kind: core.Debit, Description: "Next cycle", CreatedAt: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
	} {
		tx.UserID = e.member.ID
		if _, err := e.store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{name: "unknown email", email: "nobody@example.com", password: testPassword, want: http.StatusUnauthorized},
		{name: "wrong password", email: "jane@example.com", password: "nope", want: http.StatusUnauthorized},
		{name: "mixed case email", email: "  JANE@example.com ", password: testPassword, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: tt.email, Password: tt.password})
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	rr := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"user": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown fields should be rejected, got %d", rr.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, Options{LoginRequestsPerMinute: 2, Logger: log.New(log.Config{Output: &logs})})
	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "jane@example.com", Password: "bad"})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "jane@example.com", Password: testPassword})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if err := env.srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(logs.String(), "requests_rejected=1") {
		t.Fatalf("rejected count not logged at shutdown:\n%s", logs.String())
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, Options{})

	if rr := env.do(t, http.MethodGet, "/api/me", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/me", "garbage", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", rr.Code)
	}

	token := env.login(t, "jane@example.com", testPassword)
	rr := env.do(t, http.MethodGet, "/api/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me status=%d", rr.Code)
	}
	var me userResponse
	decode(t, rr, &me)
	if me.ID != env.member.ID || me.Role != core.RoleMember || me.Email != "jane@example.com" {
		t.Fatalf("unexpected me %+v", me)
	}
	if strings.Contains(rr.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked: %s", rr.Body.String())
	}

	if rr := env.do(t, http.MethodGet, "/api/admin/users", token, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("member on admin route status=%d", rr.Code)
	}
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.login(t, "admin@example.com", testPassword)

	tests := []struct {
		name string
		body createUserRequest
		want int
	}{
		{name: "valid member", body: createUserRequest{Name: "Bob", Email: "bob@example.com", Password: "pw"}, want: http.StatusCreated},
		{name: "duplicate email", body: createUserRequest{Name: "Bob 2", Email: "BOB@example.com", Password: "pw"}, want: http.StatusConflict},
		{name: "invalid email", body: createUserRequest{Name: "Eve", Email: "not-an-email", Password: "pw"}, want: http.StatusBadRequest},
		{name: "empty password", body: createUserRequest{Name: "Eve", Email: "eve@example.com"}, want: http.StatusBadRequest},
		{name: "unknown role", body: createUserRequest{Name: "Eve", Email: "eve@example.com", Password: "pw", Role: "owner"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/admin/users", token, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	env.seedScenario(t)
	rr := env.do(t, http.MethodGet, "/api/admin/users", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var users []userSummaryResponse
	decode(t, rr, &users)
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	jane := users[1]
	if jane.ID != env.member.ID || jane.Transactions != 4 || jane.TotalDebit != "149.00" || jane.TotalCredit != "100.00" {
		t.Fatalf("unexpected summary %+v", jane)
	}

	adminPath := "/api/admin/users/" + strconv.FormatInt(env.admin.ID, 10)
	if rr := env.do(t, http.MethodDelete, adminPath, token, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("deleting admin status=%d", rr.Code)
	}

	memberToken := env.login(t, "jane@example.com", testPassword)
	memberPath := "/api/admin/users/" + strconv.FormatInt(env.member.ID, 10)
	if rr := env.do(t, http.MethodDelete, memberPath, token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete member status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodDelete, memberPath, token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/me", memberToken, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account should lose access, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/admin/users/abc", token, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rr.Code)
	}
}

func TestAdminTransactions(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.login(t, "admin@example.com", testPassword)
	base := "/api/admin/users/" + strconv.FormatInt(env.member.ID, 10) + "/transactions"

	tests := []struct {
		name string
		path string
		body addTransactionRequest
		want int
	}{
		{name: "debit with comma", path: base, body: addTransactionRequest{Amount: "12,50", Kind: "debit", Description: "Lunch"}, want: http.StatusCreated},
		{name: "credit", path: base, body: addTransactionRequest{Amount: "5", Kind: "CREDIT"}, want: http.StatusCreated},
		{name: "negative amount", path: base, body: addTransactionRequest{Amount: "-1", Kind: "debit"}, want: http.StatusBadRequest},
		{name: "garbage amount", path: base, body: addTransactionRequest{Amount: "abc", Kind: "debit"}, want: http.StatusBadRequest},
		{name: "bad kind", path: base, body: addTransactionRequest{Amount: "1", Kind: "refund"}, want: http.StatusBadRequest},
		{name: "long description", path: base, body: addTransactionRequest{Amount: "1", Kind: "debit", Description: strings.Repeat("x", 201)}, want: http.StatusBadRequest},
		{name: "unknown user", path: "/api/admin/users/9999/transactions", body: addTransactionRequest{Amount: "1", Kind: "debit"}, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, tt.path, token, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	rr := env.do(t, http.MethodGet, base, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var txs []transactionResponse
	decode(t, rr, &txs)
	if len(txs) != 2 || txs[0].Amount != "12.50" || txs[0].AmountCents != 1250 || txs[1].Kind != core.Credit {
		t.Fatalf("unexpected transactions %+v", txs)
	}

	// Another user's path must not reach this transaction.
	wrongOwner := "/api/admin/users/" + strconv.FormatInt(env.admin.ID, 10) + "/transactions/" + strconv.FormatInt(txs[0].ID, 10)
	if rr := env.do(t, http.MethodDelete, wrongOwner, token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("wrong owner delete status=%d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, base+"/"+strconv.FormatInt(txs[0].ID, 10), token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}

	memberToken := env.login(t, "jane@example.com", testPassword)
	rr = env.do(t, http.MethodGet, "/api/me/transactions", memberToken, nil)
	decode(t, rr, &txs)
	if len(txs) != 1 {
		t.Fatalf("expected 1 remaining transaction, got %d", len(txs))
	}
}

func TestStatement(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seedScenario(t)
	token := env.login(t, "jane@example.com", testPassword)

	for _, path := range []string{"/api/me/statement", "/api/me/statement?date=2024-03-10"} {
		rr := env.do(t, http.MethodGet, path, token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		var st statementResponse
		decode(t, rr, &st)
		if st.PeriodStart != "2024-02-13" || st.PeriodEnd != "2024-03-12" || st.DueDate != "2024-04-03" {
			t.Fatalf("unexpected period %+v", st)
		}
		if len(st.Lines) != 3 || st.TotalDue != "Rs.50.00" {
			t.Fatalf("unexpected statement %+v", st)
		}
		if st.Lines[1].Kind != "CREDIT" || st.Lines[2].Description != "A very long description that w..." {
			t.Fatalf("unexpected lines %+v", st.Lines)
		}
		if st.Footer != "TOTAL DUE (to be paid by 2024-04-03): Rs.50.00" {
			t.Fatalf("unexpected footer %q", st.Footer)
		}
	}

	rr := env.do(t, http.MethodGet, "/api/me/statement?date=2024-03-13", token, nil)
	var next statementResponse
	decode(t, rr, &next)
	if len(next.Lines) != 1 || next.TotalDue != "Rs.99.00" {
		t.Fatalf("unexpected next cycle %+v", next)
	}

	rr = env.do(t, http.MethodGet, "/api/me/statement?date=2024-13-45", token, nil)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "invalid date") {
		t.Fatalf("bad date status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStatementDownload(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.seedScenario(t)
	token := env.login(t, "jane@example.com", testPassword)

	rr := env.do(t, http.MethodGet, "/api/me/statement/pdf?date=2024-03-10", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="Jane_Doe_due_2024-04-03.pdf"` {
		t.Fatalf("content disposition %q", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}

	if rr := env.do(t, http.MethodGet, "/api/me/statement/docx", token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown format status=%d", rr.Code)
	}

	adminToken := env.login(t, "admin@example.com", testPassword)
	path := "/api/admin/users/" + strconv.FormatInt(env.member.ID, 10) + "/statement/xlsx?date=2024-03-10"
	rr = env.do(t, http.MethodGet, path, adminToken, nil)
	if rr.Code != http.StatusOK || !strings.HasSuffix(rr.Header().Get("Content-Disposition"), `.xlsx"`) {
		t.Fatalf("admin xlsx status=%d headers=%v", rr.Code, rr.Header())
	}
	if rr := env.do(t, http.MethodGet, "/api/admin/users/9999/statement", adminToken, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user statement status=%d", rr.Code)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, Options{})
	token := env.login(t, "jane@example.com", testPassword)

	tests := []struct {
		name string
		body changePasswordRequest
		want int
	}{
		{name: "wrong current", body: changePasswordRequest{CurrentPassword: "x", NewPassword: "n", ConfirmPassword: "n"}, want: http.StatusBadRequest},
		{name: "mismatch", body: changePasswordRequest{CurrentPassword: testPassword, NewPassword: "n", ConfirmPassword: "m"}, want: http.StatusBadRequest},
		{name: "empty", body: changePasswordRequest{CurrentPassword: testPassword}, want: http.StatusBadRequest},
		{name: "success", body: changePasswordRequest{CurrentPassword: testPassword, NewPassword: "new-pass", ConfirmPassword: "new-pass"}, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/me/password", token, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if rr := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Email: "jane@example.com", Password: testPassword}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: %d", rr.Code)
	}
	env.login(t, "jane@example.com", "new-pass")
}
