package postgres

import (
	"time"

	"gorm.io/datatypes"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

type accountRow struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:150;not null;uniqueIndex:idx_users_username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:hashed_password;not null"`
	FullName     string    `gorm:"size:255"`
	Position     string    `gorm:"size:50;not null;default:Doctor"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (accountRow) TableName() string { return "users" }

type patientRow struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_patients_name"`
	Age       int       `gorm:"not null"`
	Sex       string    `gorm:"size:20;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (patientRow) TableName() string { return "patients" }

type scanRow struct {
	ID          uint       `gorm:"primaryKey"`
	AccountID   uint       `gorm:"column:user_id;not null;index"`
	Account     accountRow `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	PatientID   uint       `gorm:"not null;index"`
	Patient     patientRow `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	PatientName string     `gorm:"size:255;not null"`
	PatientAge  int        `gorm:"not null"`
	PatientSex  string     `gorm:"size:20;not null"`
	ScanDate    time.Time  `gorm:"type:date"`
	UploadedAt  time.Time  `gorm:"not null;index"`
	FilePath    string     `gorm:"not null"`
	DoctorNotes string     `gorm:"type:text"`
}

func (scanRow) TableName() string { return "scans" }

type predictionRow struct {
	ID         uint                                   `gorm:"primaryKey"`
	ScanID     uint                                   `gorm:"not null;uniqueIndex:idx_predictions_scan_id"`
	Scan       scanRow                                `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`
	ResultPath string                                 `gorm:"not null"`
	TumorType  string                                 `gorm:"size:50;not null"`
	Status     string                                 `gorm:"size:20;not null;default:pending"`
	Scores     datatypes.JSONType[map[string]float64] `gorm:"type:jsonb"`
	CreatedAt  time.Time                              `gorm:"not null"`
}

func (predictionRow) TableName() string { return "predictions" }

func accountFromRow(r accountRow) domain.Account {
	return domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Position:     r.Position,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func patientFromRow(r patientRow) domain.Patient {
	return domain.Patient{
		ID:        r.ID,
		Name:      r.Name,
		Age:       r.Age,
		Sex:       r.Sex,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func scanToRow(s *domain.Scan) scanRow {
	return scanRow{
		AccountID:   s.AccountID,
		PatientID:   s.PatientID,
		PatientName: s.PatientName,
		PatientAge:  s.PatientAge,
		PatientSex:  s.PatientSex,
		ScanDate:    s.ScanDate,
		UploadedAt:  s.UploadedAt,
		FilePath:    s.FilePath,
		DoctorNotes: s.Notes,
	}
}

func scanFromRow(r scanRow) domain.Scan {
	return domain.Scan{
		ID:          r.ID,
		AccountID:   r.AccountID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		PatientAge:  r.PatientAge,
		PatientSex:  r.PatientSex,
		ScanDate:    r.ScanDate.UTC(),
		UploadedAt:  r.UploadedAt.UTC(),
		FilePath:    r.FilePath,
		Notes:       r.DoctorNotes,
	}
}

func predictionFromRow(r predictionRow) domain.Prediction {
	return domain.Prediction{
		ID:         r.ID,
		ScanID:     r.ScanID,
		ResultPath: r.ResultPath,
		TumorType:  r.TumorType,
		Status:     domain.PredictionStatus(r.Status),
		Scores:     r.Scores.Data(),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}
