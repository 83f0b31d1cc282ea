// Package configs serves saved performance sheet configurations over HTTP.
package configs

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/repo"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// MaxDocumentSize bounds a stored document.
const MaxDocumentSize = 2 << 20

type Handler struct {
	Repo repo.Repository
	Log  zerolog.Logger
}

type summary struct {
	Ref       string `json:"ref"`
	ID        string `json:"id"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "Configuration not found", http.StatusNotFound)
		return
	}
	h.Log.Error().Err(err).Msg("config store")
	http.Error(w, "DB error", http.StatusInternalServerError)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Repo.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summary{Ref: rec.Ref, ID: rec.ID, UpdatedAt: rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	calc.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Repo.Get(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		h.fail(w, err)
		return
	}
	calc.WriteJSON(w, http.StatusOK, rec)
}

// Put stores the request body as the document of the reference.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentSize))
	if err != nil {
		http.Error(w, "Document too big", http.StatusRequestEntityTooLarge)
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	rec, err := h.Repo.Save(r.Context(), mux.Vars(r)["ref"], body)
	if err != nil {
		h.fail(w, err)
		return
	}
	calc.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), mux.Vars(r)["ref"]); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
