// Package calc holds what the subsystem engines share: the engine environment,
// check status strings, input validation and the error taxonomy.
package calc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CoePress/coesco-web/internal/config"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/go-playground/validator/v10"
)

// Env is passed by value into every engine call.
type Env struct {
	Tables *lookup.Tables
	Config config.Engine
}

// NewEnv loads the embedded lookup tables and engine configuration.
func NewEnv() (Env, error) {
	tb, err := lookup.Default()
	if err != nil {
		return Env{}, err
	}
	cfg, err := config.Default()
	if err != nil {
		return Env{}, err
	}
	return Env{Tables: tb, Config: cfg}, nil
}

// Check and aggregate status strings.
const (
	Pass          = "PASS"
	Fail          = "FAIL"
	OK            = "OK"
	NotOK         = "NOT OK"
	UseMotorized  = "USE MOTORIZED"
	UsePullOff    = "USE PULLOFF"
	TooDeep       = "TOO DEEP!"
	RegenRequired = "REGEN REQUIRED"
)

// PassFail maps a condition to PASS or FAIL.
func PassFail(ok bool) string {
	if ok {
		return Pass
	}
	return Fail
}

// OKNotOK maps a condition to OK or NOT OK.
func OKNotOK(ok bool) string {
	if ok {
		return OK
	}
	return NotOK
}

// AllOK reports whether every named check is OK.
func AllOK(checks map[string]string, names ...string) bool {
	for _, n := range names {
		if checks[n] != OK {
			return false
		}
	}
	return true
}

// ErrInvalidCandidate marks a result that is physically impossible for the chosen
// parameters. A search skips such candidates instead of failing.
var ErrInvalidCandidate = errors.New("invalid candidate")

// ZeroValueError names the critical fields that were zero or missing.
type ZeroValueError struct {
	Fields []string
}

func (e *ZeroValueError) Error() string {
	return "zero value detected in critical fields: " + strings.Join(e.Fields, ", ")
}

// CheckZero returns a ZeroValueError listing every field whose value is zero.
func CheckZero(fields map[string]float64) error {
	var zero []string
	for name, v := range fields {
		if v == 0 {
			zero = append(zero, name)
		}
	}
	if len(zero) == 0 {
		return nil
	}
	sort.Strings(zero)
	return &ZeroValueError{Fields: zero}
}

// InputError wraps a struct validation failure.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the `validate` struct tags of an engine input.
func Validate(in any) error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return &InputError{Err: errors.New(strings.Join(parts, "; "))}
		}
		return &InputError{Err: err}
	}
	return nil
}

// Kind tags the outcome of one engine evaluation.
type Kind int

const (
	KindOK Kind = iota
	KindInvalidCandidate
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidCandidate:
		return "invalid_candidate"
	default:
		return "configuration_error"
	}
}

// Classify maps an engine error to its kind. Anything that is not an invalid
// candidate (unknown keys, zero values, bad input) is fatal to the subsystem.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrInvalidCandidate):
		return KindInvalidCandidate
	default:
		return KindConfiguration
	}
}
