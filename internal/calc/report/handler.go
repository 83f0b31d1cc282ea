package report

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

type Handler struct {
	Log zerolog.Logger
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if input.Result.AutoFillValues == nil {
		http.Error(w, "Autofill result required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"performance-sheet.pdf\"")
	if err := Render(w, input); err != nil {
		h.Log.Error().Err(err).Msg("render report")
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
}
