package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mapping"
)

// MappingHandler serves the gesture to action table.
type MappingHandler struct {
	table  *mapping.Table
	logger *slog.Logger
}

// NewMappingHandler creates a MappingHandler for table.
func NewMappingHandler(table *mapping.Table, logger *slog.Logger) *MappingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MappingHandler{table: table, logger: logger}
}

type mappingsResponse struct {
	Mappings []mapping.Entry `json:"mappings"`
}

type conflictResponse struct {
	Error    string          `json:"error"`
	Action   mapping.Action  `json:"action"`
	Gestures []gesture.Label `json:"gestures"`
}

// ServeHTTP handles GET and PUT on /api/mappings.
//
// PUT takes an object of gesture to action identifiers. Gestures left out
// keep their current action; "none" unassigns. The whole change is rejected
// when it would bind one action to two gestures.
func (h *MappingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, mappingsResponse{Mappings: h.table.Entries()})
	case http.MethodPut:
		h.replace(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MappingHandler) replace(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}

	candidate := make(map[gesture.Label]mapping.Action, len(req))
	for g, a := range req {
		label, err := gesture.ParseLabel(g)
		if err != nil || label == gesture.None {
			writeError(w, http.StatusBadRequest, "unknown gesture: "+g)
			return
		}
		action, err := mapping.ParseAction(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		candidate[label] = action
	}

	if err := h.table.ValidateAndReplace(candidate); err != nil {
		var conflict *mapping.ConflictError
		switch {
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusConflict, conflictResponse{
				Error:    err.Error(),
				Action:   conflict.Action,
				Gestures: conflict.Gestures,
			})
		case errors.Is(err, mapping.ErrUnknownGesture), errors.Is(err, mapping.ErrUnknownAction):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to save mappings", "path", h.table.Path(), "err", err)
			writeError(w, http.StatusInternalServerError, "failed to save mappings")
		}
		return
	}

	writeJSON(w, http.StatusOK, mappingsResponse{Mappings: h.table.Entries()})
}
