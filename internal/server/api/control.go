package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/control"
)

// ControlHandler opens and closes the actuation gate.
type ControlHandler struct {
	gate *control.Gate
}

// NewControlHandler creates a ControlHandler for gate.
func NewControlHandler(gate *control.Gate) *ControlHandler {
	return &ControlHandler{gate: gate}
}

type controlResponse struct {
	Enabled bool `json:"enabled"`
}

// ServeHTTP handles /api/control, /api/control/enable and
// /api/control/disable. Enable and disable accept GET or POST so a plain
// link works, and answer 204.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/control"), "/")

	if op == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, controlResponse{Enabled: h.gate.IsEnabled()})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch op {
	case "enable":
		h.gate.Enable()
	case "disable":
		h.gate.Disable()
	default:
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
