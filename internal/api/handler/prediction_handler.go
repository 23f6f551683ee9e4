package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kanchangiri67/OncoCist/internal/api/metrics"
	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

type PredictionHandler struct {
	predictions ports.PredictionService
}

func NewPredictionHandler(predictions ports.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// Predict returns the cached prediction for a scan, computing it on first use.
//
// @Summary      Predict tumor type for a scan
// @Tags         predictions
// @Produce      json
// @Security     BearerAuth
// @Param        scan_id  path      int  true  "Scan ID"
// @Success      200      {object}  predictionResponse
// @Failure      401      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Failure      502      {object}  errorResponse
// @Router       /predict/{scan_id} [post]
func (h *PredictionHandler) Predict(c echo.Context) error {
	scanID, err := pathID(c, "scan_id")
	if err != nil {
		return err
	}

	res, err := h.predictions.Predict(c.Request().Context(), scanID)
	if err != nil {
		metrics.PredictionErrorsTotal.WithLabelValues(predictionErrorReason(err)).Inc()
		return err
	}

	metrics.PredictionsServedTotal.WithLabelValues(string(res.Outcome)).Inc()
	return c.JSON(http.StatusOK, toPredictionResponse(res.Prediction))
}

func predictionErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrScanNotFound):
		return "scan_not_found"
	case errors.Is(err, domain.ErrInference):
		return "inference"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
