package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/healthguard/internal/app"
	"github.com/okian/healthguard/internal/domain/schema"
	"github.com/okian/healthguard/pkg/logger"
)

// maxBodyBytes bounds prediction request bodies.
const maxBodyBytes = 1 << 20

// PredictDependencies defines the prediction operations used by the handler.
type PredictDependencies interface {
	PredictDiabetes(ctx context.Context, x []float64) (service.DiabetesResult, error)
	PredictHeart(ctx context.Context, x []float64) (service.HeartResult, error)
	RecordValidationFailure(model string)
}

// PredictHandler handles the per-model prediction routes.
type PredictHandler struct {
	deps   PredictDependencies
	logger logger.Logger
}

// NewPredictHandler creates a new prediction handler.
func NewPredictHandler(deps PredictDependencies, log logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, logger: log}
}

// validationResponse mirrors the FastAPI request-validation error body.
type validationResponse struct {
	Detail []schema.FieldError `json:"detail"`
}

// mismatchResponse is the soft error returned when the feature vector width
// differs from the model.
type mismatchResponse struct {
	Error            string `json:"error"`
	ExpectedFeatures int    `json:"expected_features"`
	ReceivedFeatures int    `json:"received_features"`
}

// HandleDiabetes handles POST /predict/diabetes requests.
func (h *PredictHandler) HandleDiabetes(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_diabetes"
	x, ok := h.decode(w, r, op, service.ModelDiabetes, schema.Diabetes)
	if !ok {
		return
	}
	res, err := h.deps.PredictDiabetes(r.Context(), x)
	if err != nil {
		h.predictError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleHeart handles POST /predict/heart requests.
func (h *PredictHandler) HandleHeart(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_heart"
	x, ok := h.decode(w, r, op, service.ModelHeart, schema.Heart)
	if !ok {
		return
	}
	res, err := h.deps.PredictHeart(r.Context(), x)
	if err != nil {
		h.predictError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads the body and validates it against sc. On failure the
// response has been written and ok is false.
func (h *PredictHandler) decode(w http.ResponseWriter, r *http.Request, op, model string, sc schema.Schema) ([]float64, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", WrapKind(op, ErrBodyTooLarge, err))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return nil, false
	}

	x, err := sc.Validate(body)
	if err != nil {
		h.deps.RecordValidationFailure(model)
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			h.logger.Debug(r.Context(), "request validation failed",
				logger.String("request_id", RequestIDFromContext(r.Context())),
				logger.String("model", model),
				logger.Int("errors", len(verr.Errors)),
			)
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: verr.Errors})
			return nil, false
		}
		writeError(w, http.StatusUnprocessableEntity, "unprocessable", WrapKind(op, ErrUnprocessable, err))
		return nil, false
	}
	return x, true
}

func (h *PredictHandler) predictError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var mm *service.MismatchError
	if errors.As(err, &mm) {
		writeJSON(w, http.StatusOK, mismatchResponse{
			Error:            service.ErrFeatureCountMismatch.Error(),
			ExpectedFeatures: mm.Expected,
			ReceivedFeatures: mm.Received,
		})
		return
	}

	h.logger.Error(r.Context(), "prediction request failed",
		logger.String("request_id", RequestIDFromContext(r.Context())),
		logger.String("op", op),
		logger.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "prediction_failed", NewKind(op, ErrPredictionFault))
}
