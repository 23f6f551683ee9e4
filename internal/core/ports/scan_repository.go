package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// ScanRepository persists scan metadata. List methods order by upload time
// descending; a limit of zero means no cap.
type ScanRepository interface {
	// CreateBatch inserts all scans in one transaction, assigning their ids.
	CreateBatch(ctx context.Context, scans []*domain.Scan) error
	FindByID(ctx context.Context, id uint) (*domain.Scan, error)
	ListByAccount(ctx context.Context, accountID uint, limit int) ([]domain.Scan, error)
	ListByPatient(ctx context.Context, patientID uint, limit int) ([]domain.Scan, error)
	// DeleteOwned removes the scan only when accountID owns it, otherwise it
	// reports domain.ErrScanNotFound. The prediction row cascades.
	DeleteOwned(ctx context.Context, scanID, accountID uint) (*domain.Scan, error)
}
