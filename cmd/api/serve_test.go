package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"procurement/internal/config"
	"procurement/internal/database"
	"procurement/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg = &config.Config{
		App:       config.AppConfig{Mode: gin.TestMode, JWTSecret: "test-secret", CORSOrigins: []string{"http://localhost:5173"}},
		Search:    config.SearchConfig{Timeout: time.Second},
		RateLimit: config.RateLimitConfig{PerSecond: 1000, Burst: 1000},
	}
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	return buildApp(db, hub)
}

func request(a *app, method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealthAndMetrics(t *testing.T) {
	a := testApp(t)

	if w, _ := request(a, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("/health = %d", w.Code)
	}
	w, _ := request(a, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("/metrics = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := testApp(t)
	for _, path := range []string{"/api/tax-rules", "/api/vendors", "/api/purchase-orders", "/api/auth/me"} {
		if w, _ := request(a, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, w.Code)
		}
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	a := testApp(t)

	w, _ := request(a, http.MethodPost, "/api/auth/register", "",
		`{"username":"priya","email":"priya@example.com","password":"secret123","role":"sourcing_manager"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", w.Code, w.Body.String())
	}

	w, body := request(a, http.MethodPost, "/api/auth/login", "", `{"login":"priya","password":"secret123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", w.Code, w.Body.String())
	}
	data := body["data"].(map[string]interface{})
	token := data["token"].(string)

	w, body = request(a, http.MethodGet, "/api/auth/me", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d", w.Code)
	}
	if me := body["data"].(map[string]interface{}); me["role"] != "sourcing_manager" {
		t.Errorf("me = %v", me)
	}

	// a sourcing manager can create a tax rule and calculate with it
	w, _ = request(a, http.MethodPost, "/api/tax-rules", token,
		`{"hsn_code":"8471","description":"Computers","total_rate":"18","central_rate":"9","state_rate":"9","interstate_rate":"18","effective_from":"2020-01-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create tax rule = %d: %s", w.Code, w.Body.String())
	}
	w, body = request(a, http.MethodPost, "/api/tax-rules/calculate_tax", token,
		`{"hsn_code":"8471","amount":"1000","effective_date":"2024-06-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("calculate = %d: %s", w.Code, w.Body.String())
	}
	calc := body["data"].(map[string]interface{})
	if got, err := decimal.NewFromString(fmt.Sprint(calc["total_amount"])); err != nil || !got.Equal(decimal.NewFromInt(1180)) {
		t.Errorf("total_amount = %v, want 1180", calc["total_amount"])
	}

	if w, _ := request(a, http.MethodPost, "/api/auth/register", "",
		`{"username":"priya","email":"priya@example.com","password":"secret123","role":"vendor"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}
}
