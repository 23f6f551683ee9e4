package domain

import (
	"errors"
	"path"
	"strings"
	"time"
)

// RecentScanLimit caps the "recent" history listings.
const RecentScanLimit = 5

var (
	ErrScanNotFound      = errors.New("scan not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrStorage           = errors.New("storage failure")
)

// allowedExtensions is checked longest-suffix first so "nii.gz" wins over "gz".
var allowedExtensions = []string{"nii.gz", "nii", "png", "jpg", "jpeg"}

// Scan is one uploaded study. The patient fields are a point-in-time snapshot
// taken at upload and are never refreshed from the Patient record.
type Scan struct {
	ID          uint      `json:"id"`
	AccountID   uint      `json:"user_id"`
	PatientID   uint      `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	PatientAge  int       `json:"patient_age"`
	PatientSex  string    `json:"patient_sex"`
	ScanDate    time.Time `json:"scan_date"`
	UploadedAt  time.Time `json:"uploaded_at"`
	FilePath    string    `json:"file_path"`
	Notes       string    `json:"doctor_notes,omitempty"`
}

// ScanExtension returns the lower-cased allowed extension of filename, or
// false when the file type is not accepted.
func ScanExtension(filename string) (string, bool) {
	name := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(name, "."+ext) && len(name) > len(ext)+1 {
			return ext, true
		}
	}
	return "", false
}

// IsNIfTI reports whether filename names a NIfTI volume.
func IsNIfTI(filename string) bool {
	ext, _ := ScanExtension(filename)
	return ext == "nii" || ext == "nii.gz"
}
