package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"

	"github.com/kanchangiri67/OncoCist/internal/api/middleware"
	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

type stubAuthService struct {
	signupFn  func(ctx context.Context, in ports.SignupInput) (*domain.Account, error)
	loginFn   func(ctx context.Context, email, password string) (*ports.TokenPair, *domain.Account, error)
	refreshFn func(ctx context.Context, token string) (string, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Account, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.TokenPair, *domain.Account, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (string, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrUnauthorized
}

type stubScanService struct {
	uploadFn         func(ctx context.Context, in ports.UploadInput) (*domain.Patient, []domain.Scan, error)
	listForOwnerFn   func(ctx context.Context, accountID uint, recentOnly bool) ([]ports.ScanRecord, error)
	listForPatientFn func(ctx context.Context, patientID uint, recentOnly bool) ([]ports.ScanRecord, error)
	deleteFn         func(ctx context.Context, scanID, accountID uint) error
}

func (s *stubScanService) Upload(ctx context.Context, in ports.UploadInput) (*domain.Patient, []domain.Scan, error) {
	return s.uploadFn(ctx, in)
}

func (s *stubScanService) ListForOwner(ctx context.Context, accountID uint, recentOnly bool) ([]ports.ScanRecord, error) {
	return s.listForOwnerFn(ctx, accountID, recentOnly)
}

func (s *stubScanService) ListForPatient(ctx context.Context, patientID uint, recentOnly bool) ([]ports.ScanRecord, error) {
	return s.listForPatientFn(ctx, patientID, recentOnly)
}

func (s *stubScanService) Delete(ctx context.Context, scanID, accountID uint) error {
	return s.deleteFn(ctx, scanID, accountID)
}

type stubPatientService struct {
	getFn    func(ctx context.Context, id uint) (*domain.Patient, error)
	listFn   func(ctx context.Context, accountID uint) ([]domain.Patient, error)
	deleteFn func(ctx context.Context, id uint, actor *domain.Account) error
}

func (s *stubPatientService) ResolveOrCreate(context.Context, string, int, string) (*domain.Patient, error) {
	panic("not used by handlers")
}

func (s *stubPatientService) Get(ctx context.Context, id uint) (*domain.Patient, error) {
	return s.getFn(ctx, id)
}

func (s *stubPatientService) ListForAccount(ctx context.Context, accountID uint) ([]domain.Patient, error) {
	return s.listFn(ctx, accountID)
}

func (s *stubPatientService) Delete(ctx context.Context, id uint, actor *domain.Account) error {
	return s.deleteFn(ctx, id, actor)
}

type stubPredictionService struct {
	predictFn func(ctx context.Context, scanID uint) (*ports.PredictionResult, error)
}

func (s *stubPredictionService) Predict(ctx context.Context, scanID uint) (*ports.PredictionResult, error) {
	return s.predictFn(ctx, scanID)
}

var doctor = &domain.Account{ID: 7, Username: "house", Email: "house@example.com", FullName: "Gregory House", Position: domain.PositionDoctor}

// newContext builds an echo context with the validator installed and, when
// account is non-nil, the account the Auth middleware would have stored.
func newContext(req *http.Request, account *domain.Account) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if account != nil {
		middleware.SetAccount(c, account)
	}
	return c, rec
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(target string, fields map[string]string, files ...formFile) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	for _, f := range files {
		part, _ := w.CreateFormFile("files", f.name)
		_, _ = part.Write(f.data)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}
