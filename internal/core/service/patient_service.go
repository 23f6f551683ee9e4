package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

type patientService struct {
	patients    ports.PatientRepository
	scans       ports.ScanRepository
	predictions ports.PredictionRepository
	blobs       ports.BlobStore
	events      ports.EventPublisher
	log         zerolog.Logger
	now         func() time.Time
}

// NewPatientService returns a PatientService implementation. events may be nil.
func NewPatientService(
	patients ports.PatientRepository,
	scans ports.ScanRepository,
	predictions ports.PredictionRepository,
	blobs ports.BlobStore,
	events ports.EventPublisher,
	log zerolog.Logger,
) ports.PatientService {
	return &patientService{
		patients:    patients,
		scans:       scans,
		predictions: predictions,
		blobs:       blobs,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

func (s *patientService) ResolveOrCreate(ctx context.Context, name string, age int, sex string) (*domain.Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("resolve patient: %w", domain.ErrInvalidInput)
	}

	existing, err := s.patients.FindByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrPatientNotFound) {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	created, err := s.patients.Create(ctx, &domain.Patient{
		Name:      name,
		Age:       age,
		Sex:       sex,
		CreatedAt: storedTime(s.now()),
	})
	if errors.Is(err, domain.ErrPatientExists) {
		// Lost the race against a concurrent upload for the same name.
		return s.patients.FindByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	s.log.Info().Uint("patient_id", created.ID).Msg("patient created")
	return created, nil
}

func (s *patientService) Get(ctx context.Context, id uint) (*domain.Patient, error) {
	return s.patients.FindByID(ctx, id)
}

func (s *patientService) ListForAccount(ctx context.Context, accountID uint) ([]domain.Patient, error) {
	patients, err := s.patients.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *patientService) Delete(ctx context.Context, id uint, actor *domain.Account) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	if _, err := s.patients.FindByID(ctx, id); err != nil {
		return err
	}

	// Collect file keys before the cascade removes the rows that name them.
	scans, err := s.scans.ListByPatient(ctx, id, 0)
	if err != nil {
		return fmt.Errorf("delete patient: list scans: %w", err)
	}
	preds, err := s.predictions.FindByScanIDs(ctx, lo.Map(scans, func(sc domain.Scan, _ int) uint { return sc.ID }))
	if err != nil {
		return fmt.Errorf("delete patient: list predictions: %w", err)
	}

	if err := s.patients.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}

	keys := lo.Map(scans, func(sc domain.Scan, _ int) string { return sc.FilePath })
	keys = append(keys, lo.MapToSlice(preds, func(_ uint, p domain.Prediction) string { return p.ResultPath })...)
	removeBlobs(ctx, s.blobs, s.log, keys...)

	event := domain.NewEvent(domain.EventPatientDeleted, s.now())
	event.AccountID = actor.ID
	event.PatientID = id
	event.Attributes = map[string]string{"scans_removed": strconv.Itoa(len(scans))}
	publish(ctx, s.events, s.log, event)

	s.log.Info().
		Uint("patient_id", id).
		Uint("account_id", actor.ID).
		Int("scans_removed", len(scans)).
		Msg("patient deleted")
	return nil
}
