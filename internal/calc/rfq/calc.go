// Package rfq derives line speeds from the feed rates quoted in a request for quote.
package rfq

import "github.com/CoePress/coesco-web/internal/calc"

type FeedRate struct {
	Length float64 `json:"length"` // in
	SPM    float64 `json:"spm"`
	FPM    float64 `json:"fpm"`
}

type Input struct {
	Average FeedRate `json:"average"`
	Min     FeedRate `json:"min"`
	Max     FeedRate `json:"max"`
}

type Result struct {
	Average FeedRate `json:"average"`
	Min     FeedRate `json:"min"`
	Max     FeedRate `json:"max"`
}

// FPM is the line speed in feet per minute for a feed length and press rate.
func FPM(length, spm float64) float64 {
	return length * spm / 12
}

func rate(f FeedRate) FeedRate {
	f.FPM = FPM(f.Length, f.SPM)
	return f
}

// Calculate needs the average feed; min and max are optional and come back
// with a zero speed when not quoted.
func Calculate(_ calc.Env, in Input) (Result, error) {
	if err := calc.CheckZero(map[string]float64{
		"average.length": in.Average.Length,
		"average.spm":    in.Average.SPM,
	}); err != nil {
		return Result{}, err
	}
	return Result{
		Average: rate(in.Average),
		Min:     rate(in.Min),
		Max:     rate(in.Max),
	}, nil
}
