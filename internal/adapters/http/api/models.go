package api

import (
	"net/http"

	service "github.com/okian/healthguard/internal/app"
)

// ModelsProvider describes the loaded model handles.
type ModelsProvider interface {
	Models() []service.ModelInfo
}

// ModelsHandler handles model info requests.
type ModelsHandler struct {
	provider ModelsProvider
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(provider ModelsProvider) *ModelsHandler {
	return &ModelsHandler{provider: provider}
}

type modelsResponse struct {
	Models []service.ModelInfo `json:"models"`
}

// HandleModels handles GET /models requests.
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{Models: h.provider.Models()})
}
