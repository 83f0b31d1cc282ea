package feed

import (
	"net/http"

	"github.com/CoePress/coesco-web/internal/calc"
)

type Handler struct {
	Env calc.Env
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	calc.Serve(w, r, func(in Input) (Result, error) {
		return Calculate(h.Env, in)
	})
}
