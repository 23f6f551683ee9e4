package ports

import (
	"context"
	"time"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// UploadFile is one study file of an upload request.
type UploadFile struct {
	Filename string
	Data     []byte
}

// UploadInput is the DTO passed from the transport layer to ScanService.
type UploadInput struct {
	AccountID   uint
	PatientName string
	PatientAge  int
	PatientSex  string
	ScanDate    time.Time
	Notes       string
	Files       []UploadFile
}

// ScanRecord is a scan joined with its prediction and, when requested, its uploader.
type ScanRecord struct {
	Scan       domain.Scan
	Prediction *domain.Prediction
	Uploader   *domain.Account
}

type ScanService interface {
	// Upload validates every extension before writing anything, then stores
	// all files and their rows atomically.
	Upload(ctx context.Context, in UploadInput) (*domain.Patient, []domain.Scan, error)
	ListForOwner(ctx context.Context, accountID uint, recentOnly bool) ([]ScanRecord, error)
	ListForPatient(ctx context.Context, patientID uint, recentOnly bool) ([]ScanRecord, error)
	Delete(ctx context.Context, scanID, accountID uint) error
}
