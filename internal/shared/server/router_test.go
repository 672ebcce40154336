package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"placement-backend/internal/applications"
	"placement-backend/internal/interviews"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/scheduling"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/server/middleware"
)

func testRouter(perMinute int) http.Handler {
	store := placement.NewMemoryStore()
	store.PutStudent(placement.Student{ID: "s1", TokensRemaining: 3, MaxTokens: 3})
	store.PutCompany(placement.Company{ID: "c1", InterviewQuota: 2})
	store.PutJob(placement.Job{ID: "j1", CompanyID: "c1", Title: "Backend", IsActive: true, CreatedAt: time.Unix(0, 0)})
	sink := notifications.NewMemorySink()
	grid := scheduling.DefaultGrid()
	return NewRouter(RouterDeps{
		Config:        config.Config{Env: "test", CORSAllowOrigin: []string{"http://localhost:5173"}, RateLimitPerMinute: perMinute},
		Jobs:          jobs.NewHandler(jobs.NewService(store)),
		Applications:  applications.NewHandler(applications.NewService(store, scheduling.NewScheduler(grid), sink)),
		Interviews:    interviews.NewHandler(interviews.NewService(store, sink, grid.Location)),
		Notifications: notifications.NewHandler(sink),
		Limiter:       middleware.NewRateLimiter(func() time.Time { return time.Unix(0, 0) }),
	})
}

func get(r http.Handler, path, id, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if id != "" {
		req.Header.Set("X-User-Id", id)
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterPublicRoutes(t *testing.T) {
	r := testRouter(60)

	if w := get(r, "/api/v1/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("health expected 200, got %d", w.Code)
	}
	w := get(r, "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "placement_") {
		t.Fatalf("unexpected metrics response %d %q", w.Code, w.Body.String())
	}
}

func TestRouterRequiresIdentityAndRole(t *testing.T) {
	r := testRouter(60)

	if w := get(r, "/api/v1/student/tokens", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := get(r, "/api/v1/student/tokens", "c1", "company"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w := get(r, "/api/v1/student/tokens", "s1", "student"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := get(r, "/api/v1/company/interviews", "c1", "company"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := get(r, "/api/v1/notifications", "s1", "student"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRouterMountsJobRoutes(t *testing.T) {
	r := testRouter(60)

	w := get(r, "/api/v1/student/jobs", "s1", "student")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"j1"`) {
		t.Fatalf("unexpected student jobs response %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "/api/v1/company/jobs", "c1", "company"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := get(r, "/api/v1/company/jobs", "s1", "student"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRouterRateLimitsWrites(t *testing.T) {
	r := testRouter(1)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/student/applications", strings.NewReader(`{}`))
		req.Header.Set("X-User-Id", "s1")
		req.Header.Set("X-User-Role", "student")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := post(); code != http.StatusBadRequest {
		t.Fatalf("first write expected 400 from validation, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second write expected 429, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
