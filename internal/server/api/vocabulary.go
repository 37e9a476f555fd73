package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mapping"
)

type vocabularyResponse struct {
	Gestures []gesture.Label  `json:"gestures"`
	Actions  []mapping.Action `json:"actions"`
}

// HandleVocabulary lists the assignable gestures and actions.
func HandleVocabulary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, vocabularyResponse{
		Gestures: gesture.Labels(),
		Actions:  mapping.Actions(),
	})
}
