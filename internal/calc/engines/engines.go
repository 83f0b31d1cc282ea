// Package engines indexes the subsystem engines by section name so that the
// server and the CLI dispatch them the same way.
package engines

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/calc/backbend"
	"github.com/CoePress/coesco-web/internal/calc/feed"
	"github.com/CoePress/coesco-web/internal/calc/material"
	"github.com/CoePress/coesco-web/internal/calc/reeldrive"
	"github.com/CoePress/coesco-web/internal/calc/rfq"
	"github.com/CoePress/coesco-web/internal/calc/shear"
	"github.com/CoePress/coesco-web/internal/calc/strutility"
	"github.com/CoePress/coesco-web/internal/calc/tddbhd"
)

type engine struct {
	run     func(calc.Env, []byte) (any, error)
	handler func(calc.Env) http.HandlerFunc
}

func typed[In, Out any](fn func(calc.Env, In) (Out, error)) func(calc.Env, []byte) (any, error) {
	return func(env calc.Env, data []byte) (any, error) {
		var in In
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, &calc.InputError{Err: err}
		}
		return fn(env, in)
	}
}

var registry = map[string]engine{
	"rfq": {
		run:     typed(rfq.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&rfq.Handler{Env: env}).Calc },
	},
	"material-specs": {
		run:     typed(material.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&material.Handler{Env: env}).Calc },
	},
	"tddbhd": {
		run:     typed(tddbhd.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&tddbhd.Handler{Env: env}).Calc },
	},
	"reel-drive": {
		run:     typed(reeldrive.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&reeldrive.Handler{Env: env}).Calc },
	},
	"str-utility": {
		run:     typed(strutility.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&strutility.Handler{Env: env}).Calc },
	},
	"roll-str-backbend": {
		run:     typed(backbend.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&backbend.Handler{Env: env}).Calc },
	},
	"feed": {
		run:     typed(feed.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&feed.Handler{Env: env}).Calc },
	},
	"shear": {
		run:     typed(shear.Calculate),
		handler: func(env calc.Env) http.HandlerFunc { return (&shear.Handler{Env: env}).Calc },
	},
}

// Names lists the engine sections in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Run decodes a JSON input for the named engine and evaluates it. An invalid
// candidate comes back with its result so the failing checks stay visible.
func Run(env calc.Env, name string, input []byte) (any, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q", name)
	}
	return e.run(env, input)
}

// Handler returns the HTTP handler of the named engine.
func Handler(env calc.Env, name string) (http.HandlerFunc, bool) {
	e, ok := registry[name]
	if !ok {
		return nil, false
	}
	return e.handler(env), true
}
