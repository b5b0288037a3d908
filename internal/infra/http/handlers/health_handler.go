package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xavierca1/zoho-lead-sync/internal/usecase"
)

// StatusProvider é satisfeito por *usecase.Pipeline.
type StatusProvider interface {
	Status() usecase.RunStatus
}

// Check testa uma dependência (ping no banco, conexão do RabbitMQ...).
type Check func(ctx context.Context) error

type HealthHandler struct {
	Pipeline  StatusProvider
	Checks    map[string]Check
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Running      bool              `json:"running"`
	Run          usecase.RunStatus `json:"run"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(pipeline StatusProvider, checks map[string]Check, version string) *HealthHandler {
	return &HealthHandler{
		Pipeline:  pipeline,
		Checks:    checks,
		Version:   version,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.Checks))
	status := "healthy"

	for name, check := range h.Checks {
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	run := h.Pipeline.Status()
	if run.State == usecase.StateFailure {
		status = "degraded"
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Running:      run.State.Running(),
		Run:          run,
		Dependencies: deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
