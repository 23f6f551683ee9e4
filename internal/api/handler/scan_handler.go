package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/api/metrics"
	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

// ScanHandler serves uploads, history listings and scan deletion.
type ScanHandler struct {
	scans    ports.ScanService
	patients ports.PatientService
}

func NewScanHandler(scans ports.ScanService, patients ports.PatientService) *ScanHandler {
	return &ScanHandler{scans: scans, patients: patients}
}

// Upload stores one or more study files for a patient.
//
// @Summary      Upload MRI scans
// @Tags         scans
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        patient_name  formData  string  true   "Patient full name"
// @Param        age           formData  int     true   "Patient age"
// @Param        sex           formData  string  true   "Free text, at most 20 characters"
// @Param        scan_date     formData  string  true   "YYYY-MM-DD"
// @Param        notes         formData  string  false  "Doctor notes"
// @Param        files         formData  file    true   "png, jpg, jpeg, nii or nii.gz"
// @Success      201           {object}  uploadResponse
// @Failure      401           {object}  errorResponse
// @Failure      415           {object}  errorResponse
// @Failure      422           {object}  errorResponse
// @Failure      500           {object}  errorResponse
// @Router       /mri/upload [post]
func (h *ScanHandler) Upload(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}

	var req uploadRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if err := c.Validate(&req); err != nil {
		metrics.ScanUploadsRejectedTotal.WithLabelValues("validation").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	scanDate, _ := time.Parse(scanDateLayout, req.ScanDate)

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form expected")
	}
	headers := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["files[]"]))
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["files[]"]...)
	if len(headers) == 0 {
		metrics.ScanUploadsRejectedTotal.WithLabelValues("validation").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "files is required")
	}

	files := make([]ports.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		files = append(files, ports.UploadFile{Filename: fh.Filename, Data: data})
	}

	patient, scans, err := h.scans.Upload(c.Request().Context(), ports.UploadInput{
		AccountID:   account.ID,
		PatientName: req.PatientName,
		PatientAge:  req.Age,
		PatientSex:  req.Sex,
		ScanDate:    scanDate,
		Notes:       req.Notes,
		Files:       files,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			metrics.ScanUploadsRejectedTotal.WithLabelValues("unsupported_format").Inc()
		case errors.Is(err, domain.ErrStorage):
			metrics.ScanUploadsRejectedTotal.WithLabelValues("storage").Inc()
		}
		return err
	}

	for _, s := range scans {
		ext, _ := domain.ScanExtension(s.FilePath)
		metrics.ScansUploadedTotal.WithLabelValues(ext).Inc()
	}

	recs := lo.Map(scans, func(s domain.Scan, _ int) ports.ScanRecord { return ports.ScanRecord{Scan: s} })
	return c.JSON(http.StatusCreated, uploadResponse{
		Patient: toPatientView(*patient),
		Scans:   toScanViews(recs, viewOptions{}),
	})
}

// UserRecent lists the caller's five most recent scans.
//
// @Summary      Recent scans of the current account
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userScansResponse
// @Failure      401  {object}  errorResponse
// @Router       /history/user/recent [get]
func (h *ScanHandler) UserRecent(c echo.Context) error {
	return h.userScans(c, true)
}

// UserAll lists every scan uploaded by the caller.
//
// @Summary      Full scan history of the current account
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userScansResponse
// @Failure      401  {object}  errorResponse
// @Router       /history/user/all [get]
func (h *ScanHandler) UserAll(c echo.Context) error {
	return h.userScans(c, false)
}

func (h *ScanHandler) userScans(c echo.Context, recentOnly bool) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}

	recs, err := h.scans.ListForOwner(c.Request().Context(), account.ID, recentOnly)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userScansResponse{
		User:  toUserView(account),
		Scans: toScanViews(recs, viewOptions{patient: true}),
	})
}

// UserPatients lists the distinct patients of the caller's scans.
//
// @Summary      Patients linked to the current account
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userPatientsResponse
// @Failure      401  {object}  errorResponse
// @Router       /history/user/patients [get]
func (h *ScanHandler) UserPatients(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}

	patients, err := h.patients.ListForAccount(c.Request().Context(), account.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userPatientsResponse{
		User:     toUserView(account),
		Patients: lo.Map(patients, func(p domain.Patient, _ int) patientView { return toPatientView(p) }),
	})
}

// PatientRecent lists a patient's five most recent scans with their uploaders.
// Any authenticated account may read any patient's history.
//
// @Summary      Recent scans of a patient
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Patient ID"
// @Success      200  {object}  patientScansResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /history/patient/{id}/recent [get]
func (h *ScanHandler) PatientRecent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	patient, err := h.patients.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	recs, err := h.scans.ListForPatient(c.Request().Context(), id, true)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, patientScansResponse{
		Patient: lo.ToPtr(toPatientView(*patient)),
		Scans:   toScanViews(recs, viewOptions{uploader: true}),
	})
}

// PatientAll lists every scan of a patient.
//
// @Summary      Full scan history of a patient
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Patient ID"
// @Success      200  {object}  patientScansResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /history/patient/{id}/all [get]
func (h *ScanHandler) PatientAll(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	recs, err := h.scans.ListForPatient(c.Request().Context(), id, false)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, patientScansResponse{
		Scans: toScanViews(recs, viewOptions{patient: true}),
	})
}

// Delete removes one of the caller's scans with its prediction and files.
//
// @Summary      Delete a scan
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Param        scan_id  path      int  true  "Scan ID"
// @Success      200      {object}  messageResponse
// @Failure      401      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /history/delete/{scan_id} [delete]
func (h *ScanHandler) Delete(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	scanID, err := pathID(c, "scan_id")
	if err != nil {
		return err
	}

	if err := h.scans.Delete(c.Request().Context(), scanID, account.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "scan deleted"})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return data, nil
}
