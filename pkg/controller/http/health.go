package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/assetfetch/pkg/domain/model"
	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
)

func healthHandler(weightsDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:     "healthy",
			Service:    "assetfetch",
			Version:    types.Version,
			WeightsDir: weightsDir,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
