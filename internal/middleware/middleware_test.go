package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"procurement/internal/model"
	"procurement/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type stubParser map[string]service.Actor

func (p stubParser) ParseToken(token string) (service.Actor, error) {
	a, ok := p[token]
	if !ok {
		return service.Actor{}, errors.New("bad token")
	}
	return a, nil
}

func init() { gin.SetMode(gin.TestMode) }

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		a := Actor(c)
		if ctxActor := service.ActorFrom(c.Request.Context()); ctxActor != a {
			c.String(http.StatusInternalServerError, "context actor mismatch")
			return
		}
		c.String(http.StatusOK, a.Role)
	})
	r.GET("/x/:id", handlers...)
	return r
}

func do(r http.Handler, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	buyer := service.Actor{UserID: uuid.New(), Role: model.RoleBuyerUser}
	parser := stubParser{"good": buyer}
	r := newRouter(RequireAuth(parser))

	tests := []struct {
		name  string
		setup func(*http.Request)
		code  int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Token good") }, http.StatusUnauthorized},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: "good"}) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.setup)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.code, w.Body.String())
			}
			if tt.code == http.StatusOK && w.Body.String() != model.RoleBuyerUser {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	parser := stubParser{
		"vendor": {UserID: uuid.New(), Role: model.RoleVendor},
		"admin":  {UserID: uuid.New(), Role: model.RoleBuyerAdmin},
	}
	r := newRouter(RequireAuth(parser), RequireRole(model.RoleBuyerAdmin, model.RoleSourcingManager))

	if w := do(r, func(r *http.Request) { r.Header.Set("Authorization", "Bearer vendor") }); w.Code != http.StatusForbidden {
		t.Errorf("vendor got %d, want 403", w.Code)
	}
	if w := do(r, func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin") }); w.Code != http.StatusOK {
		t.Errorf("admin got %d, want 200", w.Code)
	}

	// without RequireAuth in front there is no actor at all
	bare := newRouter(RequireRole(model.RoleBuyerAdmin))
	if w := do(bare, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bare got %d, want 401", w.Code)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := newRouter(RequestLogger())

	w := do(r, nil)
	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("missing request id header")
	}

	const supplied = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	w = do(r, func(r *http.Request) { r.Header.Set(RequestIDHeader, supplied) })
	if got := w.Header().Get(RequestIDHeader); got != supplied {
		t.Errorf("request id = %q, want client-supplied %q", got, supplied)
	}

	w = do(r, func(r *http.Request) { r.Header.Set(RequestIDHeader, "junk") })
	if got := w.Header().Get(RequestIDHeader); got == "junk" || got == "" {
		t.Errorf("invalid client id should be replaced, got %q", got)
	}
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/x/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", m.Handler())

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/x/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	want := `http_requests_total{method="GET",path="/x/:id",status="204"} 3`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}
	if strings.Contains(body, `path="/x/1"`) {
		t.Error("raw path leaked into labels")
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	now := time.Now()

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a", now) {
		t.Fatal("third request in the same instant should be limited")
	}
	if !l.Allow("b", now) {
		t.Fatal("other clients have their own bucket")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Fatal("token should refill after one second")
	}

	if n := l.Sweep(now.Add(10 * time.Minute)); n != 0 {
		t.Fatalf("sweep left %d buckets", n)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	r := newRouter(l.Middleware())

	if w := do(r, nil); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	if w := do(r, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
}
