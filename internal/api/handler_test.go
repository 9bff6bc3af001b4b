package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"exec-gateway/internal/monitor"
)

func newTestServer(t *testing.T, jwtSecret, adminPassHash string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(nil, monitor.NewStats(), monitor.NewLatencyHistogram(100), nil, nil, nil,
		SystemMeta{InstanceID: "test", Version: "dev", Venues: []string{"paper"}, Paper: true},
		jwtSecret, adminPassHash, zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestStatsExposesCounters(t *testing.T) {
	s := newTestServer(t, "", "")
	s.Stats.OrdersReceived.Add(7)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Counters struct {
			OrdersReceived uint64 `json:"orders_received"`
		} `json:"counters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Counters.OrdersReceived != 7 {
		t.Fatalf("orders_received = %d, want 7", body.Counters.OrdersReceived)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	s := newTestServer(t, "shh", "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/journal/metrics", nil)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	token, err := MintToken("operator", "shh", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/journal/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestServer(t, "shh", "")
	token, err := MintToken("operator", "shh", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/pending", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	s := newTestServer(t, "shh", string(hash))

	body, _ := json.Marshal(map[string]string{"password": "hunter2"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := parseToken(resp.Token, "shh"); err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	s := newTestServer(t, "shh", string(hash))

	body, _ := json.Marshal(map[string]string{"password": "wrong"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRateLimiterIsolatesServers(t *testing.T) {
	a := newIPLimiters(1, 1)
	b := newIPLimiters(1, 1)
	if !a.get("1.2.3.4").Allow() {
		t.Fatal("first request should pass")
	}
	if a.get("1.2.3.4").Allow() {
		t.Fatal("burst of 1 should be spent")
	}
	if !b.get("1.2.3.4").Allow() {
		t.Fatal("separate server must have its own buckets")
	}
}
