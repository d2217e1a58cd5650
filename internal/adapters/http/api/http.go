// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/healthguard/internal/app"
	"github.com/okian/healthguard/pkg/logger"
	"github.com/okian/healthguard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	PredictDiabetes(ctx context.Context, x []float64) (service.DiabetesResult, error)
	PredictHeart(ctx context.Context, x []float64) (service.HeartResult, error)
	Models() []service.ModelInfo
	RecordValidationFailure(model string)
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	rootHandler    *RootHandler
	predictHandler *PredictHandler
	modelsHandler  *ModelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	return &Server{
		rootHandler:    NewRootHandler(),
		predictHandler: NewPredictHandler(deps, log),
		modelsHandler:  NewModelsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.rootHandler.HandleRoot, "liveness"))
	mux.HandleFunc("POST /predict/diabetes", MetricsMiddleware(s.predictHandler.HandleDiabetes, "predict_diabetes"))
	mux.HandleFunc("POST /predict/heart", MetricsMiddleware(s.predictHandler.HandleHeart, "predict_heart"))
	mux.HandleFunc("GET /models", MetricsMiddleware(s.modelsHandler.HandleModels, "models"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON commits status only once v has been encoded; an unencodable
// value becomes a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "encode_failed", Message: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
