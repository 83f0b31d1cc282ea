package autofill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/logging"
	"github.com/CoePress/coesco-web/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Version of the response envelope.
const Version = "1.0"

// ErrEmptyDocument is returned for a request with nothing to fill from.
var ErrEmptyDocument = errors.New("empty input document")

type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	RequestID string    `json:"requestId"`
}

// Response is the envelope of one autofill run.
type Response struct {
	Success           bool              `json:"success"`
	Error             string            `json:"error,omitempty"`
	AutoFillValues    Document          `json:"autoFillValues"`
	GeneratedSections []string          `json:"generatedSections"`
	SectionErrors     map[string]string `json:"sectionErrors,omitempty"`
	Metadata          Metadata          `json:"metadata"`
}

// Failed builds the envelope of a request that could not be processed at all.
func Failed(err error) Response {
	return Response{
		Success:           false,
		Error:             err.Error(),
		GeneratedSections: []string{},
		Metadata:          Metadata{Timestamp: time.Now().UTC(), Version: Version, RequestID: uuid.NewString()},
	}
}

type Engine struct {
	env      calc.Env
	log      zerolog.Logger
	metrics  *metrics.Metrics
	sections []Section
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSections replaces the section list.
func WithSections(s ...Section) Option {
	return func(e *Engine) { e.sections = s }
}

func New(env calc.Env, opts ...Option) *Engine {
	e := &Engine{env: env, log: logging.Nop(), sections: Sections()}
	for _, o := range opts {
		o(e)
	}
	e.log = logging.Component(e.log, "autofill")
	return e
}

// Run fills one document. Sections run in order, each seeing the caller's
// values merged over what earlier sections generated. A failing section is
// reported in SectionErrors and the rest proceed. Cancellation is honored
// between sections, never inside a search.
func (e *Engine) Run(ctx context.Context, caller Document) (Response, error) {
	start := time.Now()
	id := uuid.NewString()
	log := e.log.With().Str("request_id", id).Logger()

	if len(caller) == 0 {
		e.metrics.Request(false, time.Since(start))
		return Response{}, ErrEmptyDocument
	}
	caller = caller.Clone()
	generated := Document{}
	resp := Response{
		GeneratedSections: []string{},
		SectionErrors:     map[string]string{},
		Metadata:          Metadata{Timestamp: start.UTC(), Version: Version, RequestID: id},
	}

	for _, s := range e.sections {
		if err := ctx.Err(); err != nil {
			e.metrics.Request(false, time.Since(start))
			return Response{}, fmt.Errorf("autofill %s: %w", id, err)
		}
		r := &request{
			env:    e.env,
			caller: caller,
			doc:    Merge(caller, generated),
			log:    log.With().Str("section", s.Name).Logger(),
		}
		if s.applies != nil && !s.applies(r) {
			continue
		}
		c, err := e.runSection(s, r)
		if err != nil {
			r.log.Warn().Err(err).Str("kind", calc.Classify(err).String()).Msg("section failed")
			resp.SectionErrors[s.Name] = err.Error()
			e.metrics.Section(s.Name, "error", 0)
			continue
		}
		mergeInto(generated, c.values)
		resp.GeneratedSections = append(resp.GeneratedSections, s.Name)

		outcome := "satisfied"
		if !c.satisfied {
			outcome = "exhausted"
		}
		e.metrics.Section(s.Name, outcome, c.iterations)
		r.log.Info().
			Int("iterations", c.iterations).
			Bool("satisfied", c.satisfied).
			Str("status", c.status).
			Msg("section filled")
	}

	resp.Success = true
	resp.AutoFillValues = Merge(caller, generated)
	if len(resp.SectionErrors) == 0 {
		resp.SectionErrors = nil
	}
	e.metrics.Request(true, time.Since(start))
	return resp, nil
}

// runSection isolates a section so that a panic in one engine only costs that section.
func (e *Engine) runSection(s Section, r *request) (c contribution, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("section %s panicked: %v", s.Name, p)
		}
	}()
	return s.run(r)
}

// RunBatch fills documents one after another; a failure is recorded in that
// document's envelope and does not stop the batch.
func (e *Engine) RunBatch(ctx context.Context, docs []Document) ([]Response, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents in batch")
	}
	out := make([]Response, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		resp, err := e.Run(ctx, d)
		if err != nil {
			resp = Failed(err)
		}
		out = append(out, resp)
	}
	return out, nil
}
