package investigate

import (
	"sleuth/internal/config"
	"sleuth/internal/incident"
)

// minEvidence is the evidence floor for both the confidence gate and the
// per-hypothesis citation contract.
const minEvidence = 2

// Options controls one analyze call.
type Options struct {
	StrictMode      bool
	TopK            int
	HypothesisCount int
	FocusArea       incident.FocusArea
	UserNotes       string

	// ExcludeSources removes whole sources from retrieval; reruns use it
	// to discount noisy artifacts.
	ExcludeSources []string

	// PinHypothesis is a free-text hint asking the oracle to weigh one
	// prior hypothesis; it never bypasses the evidence contract.
	PinHypothesis string
}

// Constraints parameterizes a rerun. A rerun is a fresh, independent analysis
// appended to history; it never merges with prior results.
type Constraints struct {
	StrictMode      bool
	TopK            int
	HypothesisCount int
	FocusArea       incident.FocusArea
	UserNotes       string
	ExcludeSources  []string
	PinHypothesis   string
}

// DefaultOptions returns the baseline analyze options: strict mode on, limits
// from settings.
func DefaultOptions(cfg config.Settings) Options {
	return Options{
		StrictMode:      true,
		TopK:            cfg.TopK,
		HypothesisCount: cfg.HypothesisCount,
	}
}

// withDefaults fills unset numeric fields from settings.
func (o Options) withDefaults(cfg config.Settings) Options {
	if o.TopK < 1 {
		o.TopK = cfg.TopK
	}
	if o.HypothesisCount < 1 {
		o.HypothesisCount = cfg.HypothesisCount
	}
	return o
}
