package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/reposift/reposift/internal/api"
)

// healthCheckTimeout bounds each live dependency probe
const healthCheckTimeout = 2 * time.Second

// Service states reported by the health surface
const (
	StatusOperational  = "operational"
	StatusUnavailable  = "unavailable"
	StatusUnconfigured = "unconfigured"
)

// StoragePinger checks that the artifact store answers
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports dependency health. Storage is probed live; the
// managed search index is reported from configuration presence because
// probing it costs a billed query. Unconfigured services never degrade
// the overall status.
type HealthHandler struct {
	storage          StoragePinger
	searchConfigured bool
}

func NewHealthHandler(storage StoragePinger, searchConfigured bool) *HealthHandler {
	return &HealthHandler{storage: storage, searchConfigured: searchConfigured}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string, 2)
	healthy := true

	if h.storage == nil {
		services["storage"] = StatusUnconfigured
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.storage.Ping(ctx); err != nil {
			services["storage"] = StatusUnavailable
			healthy = false
		} else {
			services["storage"] = StatusOperational
		}
	}

	if h.searchConfigured {
		services["search"] = StatusOperational
	} else {
		services["search"] = StatusUnconfigured
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	api.JSON(w, code, HealthResponse{Status: status, Services: services})
}
