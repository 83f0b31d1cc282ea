package autofill

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/rs/zerolog"
)

type Handler struct {
	Engine *Engine
}

type BatchInput struct {
	Items []Document `json:"items"`
}

type BatchResult struct {
	Count   int        `json:"count"`
	Results []Response `json:"results"`
}

// Autofill fills one document. The envelope reports success; a request that
// cannot be processed gets success=false and a null payload.
func (h *Handler) Autofill(w http.ResponseWriter, r *http.Request) {
	var doc Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		calc.WriteJSON(w, http.StatusBadRequest, Failed(errors.New("Invalid request payload")))
		return
	}
	resp, err := h.Engine.Run(r.Context(), doc)
	if err != nil {
		calc.WriteJSON(w, http.StatusBadRequest, Failed(err))
		return
	}
	zerolog.Ctx(r.Context()).Debug().
		Str("requestId", resp.Metadata.RequestID).
		Strs("sections", resp.GeneratedSections).
		Int("sectionErrors", len(resp.SectionErrors)).
		Msg("autofill served")
	calc.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var input BatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := h.Engine.RunBatch(r.Context(), input.Items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	calc.WriteJSON(w, http.StatusOK, BatchResult{Count: len(res), Results: res})
}
