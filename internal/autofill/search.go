package autofill

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/config"
	"github.com/rs/zerolog"
)

// ErrNoCandidate is returned when a search ends without computing any result.
var ErrNoCandidate = errors.New("no candidate could be computed")

// Point is one assignment of the searched parameters, by parameter name.
// Categorical values are strings, continuous values float64; a pinned value
// keeps whatever type the caller sent.
type Point map[string]any

// Str reads a parameter as text.
func (p Point) Str(name string) string {
	s, _ := toString(p[name])
	return s
}

// Num reads a parameter as a number; categorical options like "7.5" parse too.
func (p Point) Num(name string) float64 {
	f, _ := toFloat(p[name])
	return f
}

// Outcome is what a search settled on: the accepted result, or the last
// computed one when nothing was accepted.
type Outcome[R any] struct {
	Point      Point
	Result     R
	Status     string
	Iterations int
	Satisfied  bool
}

type dimension struct {
	param  config.SearchParam
	pinned any
	count  int
}

func (d dimension) value(i int) any {
	switch {
	case d.pinned != nil:
		return d.pinned
	case len(d.param.Options) > 0:
		return d.param.Options[i]
	}
	return d.param.Start + float64(i)*d.param.Step
}

func dimensions(space config.SearchSpace, pinned map[string]any) ([]dimension, error) {
	dims := make([]dimension, 0, len(space.Params))
	for _, p := range space.Params {
		d := dimension{param: p, count: 1}
		switch v, ok := pinned[p.Name]; {
		case ok:
			d.pinned = v
		case len(p.Options) > 0:
			d.count = len(p.Options)
		case p.Step > 0 && p.Max >= p.Start:
			d.count = int(math.Floor((p.Max-p.Start)/p.Step+1e-9)) + 1
		default:
			return nil, fmt.Errorf("search parameter %s: no options and no usable start/step/max", p.Name)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// Search walks the parameter space round robin. Every parameter starts at its
// first option (or start value); after each rejected evaluation exactly one
// parameter moves one step, taking turns, and a parameter already at its
// ceiling passes its turn to the next. The walk ends on the first accepted
// status, when every parameter is at its ceiling, or after MaxIterations.
//
// Invalid candidates are skipped. Any other engine error ends the search.
func Search[R any](
	space config.SearchSpace,
	pinned map[string]any,
	eval func(Point) (R, error),
	status func(R) string,
	accept func(string) bool,
	log zerolog.Logger,
) (Outcome[R], error) {
	dims, err := dimensions(space, pinned)
	if err != nil {
		return Outcome[R]{}, err
	}
	limit := space.MaxIterations
	if limit <= 0 {
		limit = 1
	}

	idx := make([]int, len(dims))
	cursor := 0
	var (
		fallback Outcome[R]
		computed bool
		iter     int
	)
	for iter = 1; iter <= limit; iter++ {
		pt := make(Point, len(dims))
		for i, d := range dims {
			pt[d.param.Name] = d.value(idx[i])
		}

		res, err := eval(pt)
		switch calc.Classify(err) {
		case calc.KindConfiguration:
			return Outcome[R]{Point: pt, Iterations: iter}, err
		case calc.KindInvalidCandidate:
			log.Debug().Err(err).Int("iteration", iter).Interface("point", pt).Msg("candidate rejected")
		default:
			st := status(res)
			fallback = Outcome[R]{Point: pt, Result: res, Status: st, Iterations: iter}
			computed = true
			if accept(st) {
				fallback.Satisfied = true
				return fallback, nil
			}
		}

		if !advance(dims, idx, &cursor) {
			break
		}
	}
	if iter > limit {
		iter = limit
	}
	if !computed {
		return Outcome[R]{Iterations: iter}, fmt.Errorf("%w in %d iterations", ErrNoCandidate, iter)
	}
	fallback.Iterations = iter
	return fallback, nil
}

// advance moves the next parameter in rotation that still has room.
func advance(dims []dimension, idx []int, cursor *int) bool {
	n := len(dims)
	for k := 0; k < n; k++ {
		p := (*cursor + k) % n
		if idx[p] < dims[p].count-1 {
			idx[p]++
			*cursor = (p + 1) % n
			return true
		}
	}
	return false
}

// optionValue turns a categorical option into the value written to the
// document: numbers stay numbers.
func optionValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
