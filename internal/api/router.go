package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/kanchangiri67/OncoCist/docs"
	"github.com/kanchangiri67/OncoCist/internal/api/handler"
	"github.com/kanchangiri67/OncoCist/internal/api/middleware"
	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/http/handlers"
)

// RouterDeps holds the services and settings the HTTP layer is built from.
type RouterDeps struct {
	Auth        ports.AuthService
	Patients    ports.PatientService
	Scans       ports.ScanService
	Predictions ports.PredictionService
	Readiness   []handlers.Dependency

	MaxUploadSize string
	CORSOrigins   []string
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("oncosist"))
	if deps.MaxUploadSize != "" {
		e.Use(echomiddleware.BodyLimit(deps.MaxUploadSize))
	}

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	scanHandler := handler.NewScanHandler(deps.Scans, deps.Patients)
	patientHandler := handler.NewPatientHandler(deps.Patients)
	predictionHandler := handler.NewPredictionHandler(deps.Predictions)
	gate := middleware.Auth(deps.Auth)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", authHandler.Me, gate)

	// --- Protected routes ---
	e.POST("/mri/upload", scanHandler.Upload, gate)

	history := e.Group("/history", gate)
	history.GET("/user/recent", scanHandler.UserRecent)
	history.GET("/user/all", scanHandler.UserAll)
	history.GET("/user/patients", scanHandler.UserPatients)
	history.GET("/patient/:id/recent", scanHandler.PatientRecent)
	history.GET("/patient/:id/all", scanHandler.PatientAll)
	history.DELETE("/delete/:scan_id", scanHandler.Delete)

	e.DELETE("/patients/:id", patientHandler.Delete, gate, middleware.RBAC(domain.PositionAdmin))

	e.POST("/predict/:scan_id", predictionHandler.Predict, gate)

	return e
}
