package web

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
)

type memSessions struct{ n int }

func (m *memSessions) Get(accountID string) *model.Session { return model.NewSession(accountID, "") }
func (m *memSessions) Len() int                            { return m.n }

type memCredits struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func newMemCredits() *memCredits { return &memCredits{balances: map[string]*big.Int{}} }

func (m *memCredits) GetCredits(ctx context.Context, accountID string) (model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[accountID]
	if !ok {
		return model.Balance{}, domain.ErrNotFound
	}
	return model.Balance{Atto: new(big.Int).Set(b)}, nil
}

func (m *memCredits) Debit(ctx context.Context, accountID string, amount *big.Int) error {
	return nil
}

func (m *memCredits) Grant(ctx context.Context, accountID string, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.balances[accountID]
	if !ok {
		cur = big.NewInt(0)
	}
	m.balances[accountID] = new(big.Int).Add(cur, amount)
	return nil
}

func (m *memCredits) TotalCredits(ctx context.Context) (model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := big.NewInt(0)
	for _, b := range m.balances {
		total.Add(total, b)
	}
	return model.Balance{Atto: total}, nil
}

func newTestServer(credits *memCredits) *Server {
	logger := zerolog.Nop()
	auth := NewAuthManager("test-jwt-secret", false, time.Hour)
	return NewServer(&memSessions{n: 2}, credits, auth, "admin-secret", &logger)
}

func login(t *testing.T, handler http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"secret": "admin-secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("login body: %v", err)
	}
	if out["token"] == "" {
		t.Fatal("login returned no token")
	}
	return out["token"]
}

func TestHealth(t *testing.T) {
	handler := newTestServer(newMemCredits()).Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	handler := newTestServer(newMemCredits()).Router()
	body, _ := json.Marshal(map[string]string{"secret": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong secret status = %d", rec.Code)
	}
}

func TestStatsRequiresAuth(t *testing.T) {
	handler := newTestServer(newMemCredits()).Router()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated stats status = %d", rec.Code)
	}
}

func TestStatsWithToken(t *testing.T) {
	credits := newMemCredits()
	_ = credits.Grant(context.Background(), "100", model.AttoFromONE(5))
	handler := newTestServer(credits).Router()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var out struct {
		Sessions        int     `json:"sessions"`
		TotalCreditsONE float64 `json:"total_credits_one"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("stats body: %v", err)
	}
	if out.Sessions != 2 || out.TotalCreditsONE != 5 {
		t.Errorf("stats = %+v", out)
	}
}

func TestGrantCredits(t *testing.T) {
	credits := newMemCredits()
	handler := newTestServer(credits).Router()
	token := login(t, handler)

	body, _ := json.Marshal(map[string]any{"account_id": "100", "amount_one": 2.5})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("grant status = %d body=%s", rec.Code, rec.Body.String())
	}

	bal, err := credits.GetCredits(context.Background(), "100")
	if err != nil {
		t.Fatalf("GetCredits: %v", err)
	}
	if got := bal.ONE(false); got != 2.5 {
		t.Errorf("granted balance = %f, want 2.5", got)
	}
}

func TestGrantCreditsRejectsBadInput(t *testing.T) {
	handler := newTestServer(newMemCredits()).Router()
	token := login(t, handler)

	for _, payload := range []string{
		`{"account_id":"","amount_one":1}`,
		`{"account_id":"100","amount_one":0}`,
		`{"account_id":"100","amount_one":-5}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credits", bytes.NewReader([]byte(payload)))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %q status = %d, want 400", payload, rec.Code)
		}
	}
}

func TestForgedTokenRejected(t *testing.T) {
	handler := newTestServer(newMemCredits()).Router()

	// Token minted with a different key must not verify.
	other := NewAuthManager("other-secret", false, time.Hour)
	rec := httptest.NewRecorder()
	forged, err := other.Mint(rec)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token status = %d", rec.Code)
	}
}
