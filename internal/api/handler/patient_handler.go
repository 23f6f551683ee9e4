package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

type PatientHandler struct {
	patients ports.PatientService
}

func NewPatientHandler(patients ports.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// Delete removes a patient with every scan, prediction and stored file.
//
// @Summary      Delete a patient
// @Tags         patients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Patient ID"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /patients/{id} [delete]
func (h *PatientHandler) Delete(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.patients.Delete(c.Request().Context(), id, account); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "patient deleted"})
}
