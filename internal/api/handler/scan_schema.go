package handler

import "time"

// uploadRequest carries the non-file fields of POST /mri/upload. They are
// read from the multipart form, with the query string as a fallback.
type uploadRequest struct {
	PatientName string `query:"patient_name" form:"patient_name" validate:"required,max=255"`
	Age         int    `query:"age" form:"age" validate:"gte=0,lte=150"`
	Sex         string `query:"sex" form:"sex" validate:"required,max=20"`
	ScanDate    string `query:"scan_date" form:"scan_date" validate:"required,datetime=2006-01-02"`
	Notes       string `query:"notes" form:"notes" validate:"max=4000"`
}

type userView struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type patientView struct {
	PatientID   uint   `json:"patient_id"`
	PatientName string `json:"patient_name"`
	PatientAge  int    `json:"patient_age"`
	PatientSex  string `json:"patient_sex"`
}

type scanView struct {
	ScanID               uint         `json:"scan_id"`
	FilePath             string       `json:"file_path"`
	ScanDate             string       `json:"scan_date"`
	UploadedAt           time.Time    `json:"uploaded_at"`
	PredictionStatus     string       `json:"prediction_status"`
	PredictionResultPath *string      `json:"prediction_result_path"`
	TumorType            string       `json:"tumor_type"`
	DoctorNotes          string       `json:"doctor_notes"`
	Patient              *patientView `json:"patient,omitempty"`
	UploadedBy           *userView    `json:"uploaded_by,omitempty"`
}

type uploadResponse struct {
	Patient patientView `json:"patient"`
	Scans   []scanView  `json:"scans"`
}

type userScansResponse struct {
	User  userView   `json:"user"`
	Scans []scanView `json:"scans"`
}

type userPatientsResponse struct {
	User     userView      `json:"user"`
	Patients []patientView `json:"patients"`
}

type patientScansResponse struct {
	Patient *patientView `json:"patient,omitempty"`
	Scans   []scanView   `json:"scans"`
}

type predictionResponse struct {
	ID         uint               `json:"id"`
	ScanID     uint               `json:"scan_id"`
	ResultPath string             `json:"result_path"`
	TumorType  string             `json:"tumor_type"`
	Status     string             `json:"status"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
