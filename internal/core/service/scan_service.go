package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const defaultUploadDir = "uploads"

type scanService struct {
	patients    ports.PatientService
	patientRepo ports.PatientRepository
	scans       ports.ScanRepository
	predictions ports.PredictionRepository
	accounts    ports.AccountRepository
	blobs       ports.BlobStore
	events      ports.EventPublisher
	uploadDir   string
	log         zerolog.Logger
	now         func() time.Time
}

// ScanServiceDeps groups the collaborators of the scan archive.
type ScanServiceDeps struct {
	Patients    ports.PatientService
	PatientRepo ports.PatientRepository
	Scans       ports.ScanRepository
	Predictions ports.PredictionRepository
	Accounts    ports.AccountRepository
	Blobs       ports.BlobStore
	Events      ports.EventPublisher // optional
	UploadDir   string
}

// NewScanService returns a ScanService implementation.
func NewScanService(deps ScanServiceDeps, log zerolog.Logger) ports.ScanService {
	dir := strings.Trim(deps.UploadDir, "/")
	if dir == "" {
		dir = defaultUploadDir
	}
	return &scanService{
		patients:    deps.Patients,
		patientRepo: deps.PatientRepo,
		scans:       deps.Scans,
		predictions: deps.Predictions,
		accounts:    deps.Accounts,
		blobs:       deps.Blobs,
		events:      deps.Events,
		uploadDir:   dir,
		log:         log,
		now:         time.Now,
	}
}

// Upload writes every file first and then commits all rows in one
// transaction. On any failure the files written so far are removed, so a
// row never points at a missing file.
func (s *scanService) Upload(ctx context.Context, in ports.UploadInput) (*domain.Patient, []domain.Scan, error) {
	if len(in.Files) == 0 {
		return nil, nil, fmt.Errorf("upload: no files: %w", domain.ErrInvalidInput)
	}
	for _, f := range in.Files {
		if _, ok := domain.ScanExtension(f.Filename); !ok {
			return nil, nil, fmt.Errorf("upload %q: %w", f.Filename, domain.ErrUnsupportedFormat)
		}
	}

	patient, err := s.patients.ResolveOrCreate(ctx, in.PatientName, in.PatientAge, in.PatientSex)
	if err != nil {
		return nil, nil, fmt.Errorf("upload: %w", err)
	}

	now := s.now()
	uploadedAt := storedTime(now)
	rows := make([]*domain.Scan, 0, len(in.Files))
	written := make([]string, 0, len(in.Files))

	for i, f := range in.Files {
		key := s.fileKey(patient.ID, now, i, f.Filename)
		if err := s.blobs.Put(ctx, key, f.Data); err != nil {
			removeBlobs(ctx, s.blobs, s.log, written...)
			return nil, nil, fmt.Errorf("upload %q: %w: %v", f.Filename, domain.ErrStorage, err)
		}
		written = append(written, key)

		rows = append(rows, &domain.Scan{
			AccountID:   in.AccountID,
			PatientID:   patient.ID,
			PatientName: patient.Name,
			PatientAge:  patient.Age,
			PatientSex:  patient.Sex,
			ScanDate:    in.ScanDate,
			UploadedAt:  uploadedAt,
			FilePath:    key,
			Notes:       strings.TrimSpace(in.Notes),
		})
	}

	if err := s.scans.CreateBatch(ctx, rows); err != nil {
		removeBlobs(ctx, s.blobs, s.log, written...)
		return nil, nil, fmt.Errorf("upload: %w: %v", domain.ErrStorage, err)
	}

	stored := make([]domain.Scan, 0, len(rows))
	for _, sc := range rows {
		stored = append(stored, *sc)

		event := domain.NewEvent(domain.EventScanUploaded, uploadedAt)
		event.AccountID = sc.AccountID
		event.PatientID = sc.PatientID
		event.ScanID = sc.ID
		event.Attributes = map[string]string{"file_path": sc.FilePath}
		publish(ctx, s.events, s.log, event)
	}

	s.log.Info().
		Uint("account_id", in.AccountID).
		Uint("patient_id", patient.ID).
		Int("files", len(stored)).
		Msg("scans uploaded")

	return patient, stored, nil
}

func (s *scanService) ListForOwner(ctx context.Context, accountID uint, recentOnly bool) ([]ports.ScanRecord, error) {
	scans, err := s.scans.ListByAccount(ctx, accountID, limitFor(recentOnly))
	if err != nil {
		return nil, fmt.Errorf("list scans for account: %w", err)
	}
	return s.compose(ctx, scans, false)
}

// ListForPatient is not restricted to the scans' owners.
func (s *scanService) ListForPatient(ctx context.Context, patientID uint, recentOnly bool) ([]ports.ScanRecord, error) {
	if _, err := s.patientRepo.FindByID(ctx, patientID); err != nil {
		return nil, err
	}
	scans, err := s.scans.ListByPatient(ctx, patientID, limitFor(recentOnly))
	if err != nil {
		return nil, fmt.Errorf("list scans for patient: %w", err)
	}
	return s.compose(ctx, scans, true)
}

// Delete reports domain.ErrScanNotFound both for a missing scan and for one
// owned by another account.
func (s *scanService) Delete(ctx context.Context, scanID, accountID uint) error {
	var resultPath string
	if pred, err := s.predictions.FindByScanID(ctx, scanID); err == nil {
		resultPath = pred.ResultPath
	} else if !errors.Is(err, domain.ErrPredictionNotFound) {
		return fmt.Errorf("delete scan: %w", err)
	}

	deleted, err := s.scans.DeleteOwned(ctx, scanID, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			return domain.ErrScanNotFound
		}
		return fmt.Errorf("delete scan: %w", err)
	}

	removeBlobs(ctx, s.blobs, s.log, deleted.FilePath, resultPath)

	event := domain.NewEvent(domain.EventScanDeleted, s.now())
	event.AccountID = accountID
	event.PatientID = deleted.PatientID
	event.ScanID = deleted.ID
	publish(ctx, s.events, s.log, event)

	s.log.Info().Uint("scan_id", scanID).Uint("account_id", accountID).Msg("scan deleted")
	return nil
}

func (s *scanService) compose(ctx context.Context, scans []domain.Scan, withUploader bool) ([]ports.ScanRecord, error) {
	if len(scans) == 0 {
		return []ports.ScanRecord{}, nil
	}

	preds, err := s.predictions.FindByScanIDs(ctx, lo.Map(scans, func(sc domain.Scan, _ int) uint { return sc.ID }))
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}

	var uploaders map[uint]domain.Account
	if withUploader {
		ids := lo.Uniq(lo.Map(scans, func(sc domain.Scan, _ int) uint { return sc.AccountID }))
		if uploaders, err = s.accounts.FindByIDs(ctx, ids); err != nil {
			return nil, fmt.Errorf("load uploaders: %w", err)
		}
	}

	return lo.Map(scans, func(sc domain.Scan, _ int) ports.ScanRecord {
		rec := ports.ScanRecord{Scan: sc}
		if p, ok := preds[sc.ID]; ok {
			rec.Prediction = &p
		}
		if u, ok := uploaders[sc.AccountID]; ok {
			rec.Uploader = &u
		}
		return rec
	}), nil
}

// fileKey is unique per upload: nanosecond timestamp plus the file's position
// in the request, scoped under the patient directory.
func (s *scanService) fileKey(patientID uint, at time.Time, idx int, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	stamp := strconv.FormatInt(at.UnixNano(), 10)
	if idx > 0 {
		stamp += "-" + strconv.Itoa(idx)
	}
	return path.Join(s.uploadDir, "patient_"+strconv.FormatUint(uint64(patientID), 10), stamp+"_"+base)
}

func limitFor(recentOnly bool) int {
	if recentOnly {
		return domain.RecentScanLimit
	}
	return 0
}
