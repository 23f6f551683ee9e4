package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

type tokenAuth struct {
	ports.AuthService
	accounts map[string]*domain.Account
}

func (a *tokenAuth) Authenticate(_ context.Context, token string) (*domain.Account, error) {
	if acc, ok := a.accounts[token]; ok {
		return acc, nil
	}
	return nil, domain.ErrUnauthorized
}

type fakePatients struct {
	ports.PatientService
	deleted []uint
}

func (p *fakePatients) Delete(_ context.Context, id uint, actor *domain.Account) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	p.deleted = append(p.deleted, id)
	return nil
}

type fakeScans struct {
	ports.ScanService
}

func (fakeScans) ListForOwner(context.Context, uint, bool) ([]ports.ScanRecord, error) {
	return []ports.ScanRecord{}, nil
}

var (
	routerOnce sync.Once
	testRouter *echo.Echo
	patients   = &fakePatients{}
)

// router is built once: the prometheus middleware registers collectors
// globally.
func router() *echo.Echo {
	routerOnce.Do(func() {
		testRouter = NewRouter(RouterDeps{
			Auth: &tokenAuth{accounts: map[string]*domain.Account{
				"doctor-token": {ID: 1, Position: domain.PositionDoctor},
				"admin-token":  {ID: 2, Position: domain.PositionAdmin},
			}},
			Patients:    patients,
			Scans:       fakeScans{},
			CORSOrigins: []string{"*"},
			Log:         zerolog.Nop(),
		})
	})
	return testRouter
}

func serve(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router().ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	if rec := serve(http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("/health: expected 200, got %d", rec.Code)
	}
	if rec := serve(http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("/health/ready: expected 200, got %d", rec.Code)
	}
	if rec := serve(http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("/metrics: expected 200, got %d", rec.Code)
	}
}

func TestRouter_AccessGate(t *testing.T) {
	rec := serve(http.MethodGet, "/history/user/recent", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("missing WWW-Authenticate header")
	}

	if rec := serve(http.MethodGet, "/history/user/recent", "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
	if rec := serve(http.MethodGet, "/history/user/recent", "doctor-token"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestRouter_PatientDeleteRequiresAdmin(t *testing.T) {
	if rec := serve(http.MethodDelete, "/patients/9", "doctor-token"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for doctor, got %d", rec.Code)
	}
	if rec := serve(http.MethodDelete, "/patients/9", "admin-token"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
	if len(patients.deleted) != 1 || patients.deleted[0] != 9 {
		t.Fatalf("unexpected deletes: %v", patients.deleted)
	}
}
