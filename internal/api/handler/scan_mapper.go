package handler

import (
	"strings"

	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const (
	scanDateLayout  = "2006-01-02"
	unknownTumor    = "N/A"
	pendingStatus   = string(domain.PredictionPending)
	bearerTokenType = "bearer"
)

func toUserView(a *domain.Account) userView {
	return userView{UserID: a.ID, Username: a.Username, Email: a.Email}
}

func toPatientView(p domain.Patient) patientView {
	return patientView{PatientID: p.ID, PatientName: p.Name, PatientAge: p.Age, PatientSex: p.Sex}
}

// snapshotPatient renders the demographics captured on the scan at upload.
func snapshotPatient(s domain.Scan) *patientView {
	return &patientView{PatientID: s.PatientID, PatientName: s.PatientName, PatientAge: s.PatientAge, PatientSex: s.PatientSex}
}

type viewOptions struct {
	patient  bool
	uploader bool
}

func toScanView(rec ports.ScanRecord, opts viewOptions) scanView {
	v := scanView{
		ScanID:           rec.Scan.ID,
		FilePath:         slashPath(rec.Scan.FilePath),
		ScanDate:         rec.Scan.ScanDate.Format(scanDateLayout),
		UploadedAt:       rec.Scan.UploadedAt,
		PredictionStatus: pendingStatus,
		TumorType:        unknownTumor,
		DoctorNotes:      rec.Scan.Notes,
	}
	if p := rec.Prediction; p != nil {
		v.PredictionStatus = string(p.Status)
		if p.ResultPath != "" {
			v.PredictionResultPath = lo.ToPtr(slashPath(p.ResultPath))
		}
		if p.TumorType != "" {
			v.TumorType = p.TumorType
		}
	}
	if opts.patient {
		v.Patient = snapshotPatient(rec.Scan)
	}
	if opts.uploader && rec.Uploader != nil {
		v.UploadedBy = lo.ToPtr(toUserView(rec.Uploader))
	}
	return v
}

func toScanViews(recs []ports.ScanRecord, opts viewOptions) []scanView {
	return lo.Map(recs, func(rec ports.ScanRecord, _ int) scanView { return toScanView(rec, opts) })
}

func toPredictionResponse(p *domain.Prediction) predictionResponse {
	return predictionResponse{
		ID:         p.ID,
		ScanID:     p.ScanID,
		ResultPath: slashPath(p.ResultPath),
		TumorType:  p.TumorType,
		Status:     string(p.Status),
		Scores:     p.Scores,
		CreatedAt:  p.CreatedAt,
	}
}

func slashPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
