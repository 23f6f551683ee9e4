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

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const defaultPredictionDir = "predictions"

type predictionService struct {
	scans         ports.ScanRepository
	predictions   ports.PredictionRepository
	blobs         ports.BlobStore
	scorer        ports.Scorer
	locker        ports.ScanLocker
	events        ports.EventPublisher
	predictionDir string
	log           zerolog.Logger
	now           func() time.Time
}

// PredictionServiceDeps groups the collaborators of the prediction pipeline.
type PredictionServiceDeps struct {
	Scans         ports.ScanRepository
	Predictions   ports.PredictionRepository
	Blobs         ports.BlobStore
	Scorer        ports.Scorer
	Locker        ports.ScanLocker     // optional
	Events        ports.EventPublisher // optional
	PredictionDir string
}

// NewPredictionService returns a PredictionService implementation.
func NewPredictionService(deps PredictionServiceDeps, log zerolog.Logger) ports.PredictionService {
	dir := strings.Trim(deps.PredictionDir, "/")
	if dir == "" {
		dir = defaultPredictionDir
	}
	locker := deps.Locker
	if locker == nil {
		locker = noopLocker{}
	}
	return &predictionService{
		scans:         deps.Scans,
		predictions:   deps.Predictions,
		blobs:         deps.Blobs,
		scorer:        deps.Scorer,
		locker:        locker,
		events:        deps.Events,
		predictionDir: dir,
		log:           log,
		now:           time.Now,
	}
}

// Predict returns the stored prediction for scanID, computing it at most once.
// A failed inference leaves no row behind so a later call can retry.
func (s *predictionService) Predict(ctx context.Context, scanID uint) (*ports.PredictionResult, error) {
	scan, err := s.scans.FindByID(ctx, scanID)
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, fmt.Errorf("predict: load scan: %w", err)
	}

	if existing, err := s.cached(ctx, scanID); err != nil || existing != nil {
		return hit(existing), err
	}

	release, err := s.locker.Lock(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("predict: lock scan %d: %w", scanID, err)
	}
	defer release()

	// Another instance may have finished while this one waited for the lock.
	if existing, err := s.cached(ctx, scanID); err != nil || existing != nil {
		return hit(existing), err
	}

	result, err := s.score(ctx, scan)
	if err != nil {
		s.log.Warn().Err(err).Uint("scan_id", scanID).Msg("inference failed")
		return nil, err
	}

	key := s.resultKey(scan)
	if err := s.blobs.Put(ctx, key, result.Overlay); err != nil {
		return nil, fmt.Errorf("predict: save result: %w: %v", domain.ErrStorage, err)
	}

	created, err := s.predictions.Create(ctx, &domain.Prediction{
		ScanID:     scanID,
		ResultPath: key,
		TumorType:  result.TumorType,
		Status:     domain.PredictionCompleted,
		Scores:     result.Scores,
		CreatedAt:  storedTime(s.now()),
	})
	if errors.Is(err, domain.ErrDuplicatePrediction) {
		// The artifact key is shared with the winner, so it is left in place.
		winner, ferr := s.predictions.FindByScanID(ctx, scanID)
		if ferr != nil {
			return nil, fmt.Errorf("predict: reload after conflict: %w", ferr)
		}
		s.log.Info().Uint("scan_id", scanID).Msg("prediction computed concurrently, using stored result")
		return &ports.PredictionResult{Prediction: winner, Outcome: ports.OutcomeRaceRecovered}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("predict: persist: %w", err)
	}

	event := domain.NewEvent(domain.EventPredictionCreated, created.CreatedAt)
	event.AccountID = scan.AccountID
	event.PatientID = scan.PatientID
	event.ScanID = scanID
	event.Attributes = map[string]string{
		"tumor_type":  created.TumorType,
		"result_path": created.ResultPath,
	}
	publish(ctx, s.events, s.log, event)

	s.log.Info().
		Uint("scan_id", scanID).
		Uint("prediction_id", created.ID).
		Str("tumor_type", created.TumorType).
		Msg("prediction computed")

	return &ports.PredictionResult{Prediction: created, Outcome: ports.OutcomeComputed}, nil
}

func (s *predictionService) cached(ctx context.Context, scanID uint) (*domain.Prediction, error) {
	p, err := s.predictions.FindByScanID(ctx, scanID)
	if errors.Is(err, domain.ErrPredictionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("predict: lookup: %w", err)
	}
	return p, nil
}

func (s *predictionService) score(ctx context.Context, scan *domain.Scan) (*ports.ScoreResult, error) {
	data, err := s.blobs.Get(ctx, scan.FilePath)
	if err != nil {
		return nil, fmt.Errorf("predict scan %d: load source: %w: %v", scan.ID, domain.ErrInference, err)
	}

	result, err := s.scorer.Score(ctx, ports.ScoreInput{
		ScanID:   scan.ID,
		Filename: path.Base(scan.FilePath),
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInference) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("predict scan %d: %w", scan.ID, err)
		}
		return nil, fmt.Errorf("predict scan %d: %w: %v", scan.ID, domain.ErrInference, err)
	}
	if len(result.Overlay) == 0 || !domain.IsTumorLabel(result.TumorType) {
		return nil, fmt.Errorf("predict scan %d: %w: scorer returned label %q", scan.ID, domain.ErrInference, result.TumorType)
	}
	return result, nil
}

// resultKey derives the artifact location from the source file name, which is
// already unique within its patient directory.
func (s *predictionService) resultKey(scan *domain.Scan) string {
	base := path.Base(scan.FilePath)
	if ext, ok := domain.ScanExtension(base); ok {
		base = base[:len(base)-len(ext)-1]
	}
	return path.Join(s.predictionDir, "patient_"+strconv.FormatUint(uint64(scan.PatientID), 10), "mask_"+base+".png")
}

func hit(p *domain.Prediction) *ports.PredictionResult {
	if p == nil {
		return nil
	}
	return &ports.PredictionResult{Prediction: p, Outcome: ports.OutcomeCacheHit}
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uint) (func(), error) { return func() {}, nil }
