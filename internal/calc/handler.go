package calc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CoePress/coesco-web/internal/lookup"
)

// WriteJSON encodes v as the JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps an engine error to an HTTP status. Input and configuration
// problems are the caller's to fix; anything else is ours.
func WriteError(w http.ResponseWriter, err error) {
	var uk *lookup.UnknownKeyError
	var zv *ZeroValueError
	var ie *InputError
	switch {
	case errors.As(err, &uk), errors.As(err, &zv), errors.As(err, &ie):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCandidate):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "Calculation error", http.StatusInternalServerError)
	}
}

// Serve decodes an engine input, runs fn and writes its result.
// It is the body of every engine handler.
func Serve[In, Out any](w http.ResponseWriter, r *http.Request, fn func(In) (Out, error)) {
	var input In
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := fn(input)
	if err != nil {
		if errors.Is(err, ErrInvalidCandidate) {
			// the result still carries the failing checks
			WriteJSON(w, http.StatusUnprocessableEntity, res)
			return
		}
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
