package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

// SettingsHandler reads and persists runtime tunables. Saved values take
// effect the next time the pipeline starts.
type SettingsHandler struct {
	store *store.Store
	base  config.Config
}

// NewSettingsHandler creates a SettingsHandler. base is the configuration
// the stored settings are layered over.
func NewSettingsHandler(s *store.Store, base config.Config) *SettingsHandler {
	return &SettingsHandler{store: s, base: base}
}

type settingsResponse struct {
	Settings        map[string]string `json:"settings"`
	RestartRequired bool              `json:"restart_required,omitempty"`
}

// ServeHTTP handles GET and PUT on /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// effective returns the base configuration with the stored settings applied.
func (h *SettingsHandler) effective() (config.Config, error) {
	cfg := h.base
	stored, err := h.store.Settings().All()
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplySettings(stored); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (h *SettingsHandler) get(w http.ResponseWriter, _ *http.Request) {
	cfg, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg.Settings()})
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "no settings given")
		return
	}

	cfg, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if err := cfg.ApplySettings(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Settings().SetMany(req); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{Settings: cfg.Settings(), RestartRequired: true})
}
