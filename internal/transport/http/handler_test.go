package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/service"
	"github.com/cwrk-planet/presence-service/internal/store"
	httpmw "github.com/cwrk-planet/presence-service/internal/transport/http/middleware"
)

type stubAuth struct{}

func (stubAuth) Authorize(_ context.Context, token string) (string, bool) {
	if token == "" || token == "bad" {
		return "", false
	}
	return token, true
}

type discardBus struct{}

func (discardBus) Publish(context.Context, string, domain.RoomState) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *service.PresenceService) {
	t.Helper()

	m := store.NewMemory(time.Hour)
	t.Cleanup(func() { _ = m.Close() })
	svc := service.NewPresenceService(m, discardBus{})

	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(stubAuth{}))
		pr.Get("/presence/pages/*", NewHandler(svc).GetPresence)
	})
	return r, svc
}

func TestGetPresence_EmptyRoom(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/presence/pages/admin/pages/12/edit", nil)
	req.Header.Set("Authorization", "Bearer alice")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp PresenceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Owner != nil || len(resp.Users) != 0 || resp.IsDirty {
		t.Fatalf("want blank state, got %+v", resp)
	}
}

func TestGetPresence_OccupiedRoom(t *testing.T) {
	r, svc := newTestRouter(t)

	if _, err := svc.Join(context.Background(), "adminpages12edit", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/presence/pages/Admin/Pages/12/Edit", nil)
	req.Header.Set("Authorization", "Bearer bob")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp PresenceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Owner == nil || *resp.Owner != "alice" {
		t.Fatalf("owner = %v", resp.Owner)
	}
	if !reflect.DeepEqual(resp.Users, []string{"alice"}) {
		t.Fatalf("users = %v", resp.Users)
	}
}

func TestGetPresence_RequiresBearerToken(t *testing.T) {
	r, _ := newTestRouter(t)

	for name, setup := range map[string]func(*http.Request){
		"no header":     func(*http.Request) {},
		"invalid token": func(req *http.Request) { req.Header.Set("Authorization", "Bearer bad") },
		"not bearer":    func(req *http.Request) { req.Header.Set("Authorization", "Basic abc") },
	} {
		req := httptest.NewRequest(http.MethodGet, "/presence/pages/page", nil)
		setup(req)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}
