package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/rs/zerolog"
)

// MaxUpload bounds an uploaded sheet.
const MaxUpload = 10 << 20

type Handler struct {
	Engine *autofill.Engine
	Log    zerolog.Logger
}

var contentTypes = map[Format]string{
	XLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	CSV:  "text/csv",
}

// Import autofills every row of an uploaded sheet. The results come back as
// JSON, or as a sheet when the output query parameter names a format.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format, err := FormatOf(hdr.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	docs, err := Read(format, file)
	if err != nil {
		if errors.Is(err, ErrEmptySheet) {
			http.Error(w, "Empty sheet", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid file", http.StatusBadRequest)
		return
	}

	res, err := h.Engine.RunBatch(r.Context(), docs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Log.Info().Str("file", hdr.Filename).Int("rows", len(docs)).Msg("sheet imported")

	out := r.URL.Query().Get("output")
	if out == "" || out == "json" {
		calc.WriteJSON(w, http.StatusOK, autofill.BatchResult{Count: len(res), Results: res})
		return
	}
	outFormat := Format(out)
	if _, ok := contentTypes[outFormat]; !ok {
		http.Error(w, fmt.Sprintf("unsupported output %q", out), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := Write(outFormat, &buf, Results(res)); err != nil {
		h.Log.Error().Err(err).Msg("export results")
		http.Error(w, "Export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[outFormat])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"results.%s\"", outFormat))
	w.Write(buf.Bytes())
}
