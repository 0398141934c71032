// Package synthesis provides the generation parameter bundle and the HTTP
// client for the standalone Chatterbox TTS service.
package synthesis

import (
	"errors"
	"fmt"
)

// MaxChars is the character cap of the multilingual Chatterbox model. Text
// longer than this is truncated at the service boundary.
const MaxChars = 300

// Parameter ranges accepted by the model.
const (
	MinExaggeration = 0.25
	MaxExaggeration = 2.0

	MinCFGWeight = 0.0
	MaxCFGWeight = 1.0

	MinTemperature = 0.05
	MaxTemperature = 2.0

	MinTopP = 0.1
	MaxTopP = 1.0

	MinMinP = 0.0
	MaxMinP = 0.5

	MinRepetitionPenalty = 1.0
	MaxRepetitionPenalty = 2.0
)

// Default parameter values.
const (
	DefaultExaggeration      = 0.5
	DefaultCFGWeight         = 0.5
	DefaultTemperature       = 0.8
	DefaultTopP              = 1.0
	DefaultMinP              = 0.05
	DefaultRepetitionPenalty = 1.2
)

// Static validation errors.
var (
	// ErrExaggerationRange indicates exaggeration outside [0.25, 2.0].
	ErrExaggerationRange = errors.New("exaggeration must be between 0.25 and 2.0")
	// ErrCFGWeightRange indicates cfg weight outside [0.0, 1.0].
	ErrCFGWeightRange = errors.New("cfg weight must be between 0.0 and 1.0")
	// ErrTemperatureRange indicates temperature outside [0.05, 2.0].
	ErrTemperatureRange = errors.New("temperature must be between 0.05 and 2.0")
	// ErrTopPRange indicates top_p outside [0.1, 1.0].
	ErrTopPRange = errors.New("top_p must be between 0.1 and 1.0")
	// ErrMinPRange indicates min_p outside [0.0, 0.5].
	ErrMinPRange = errors.New("min_p must be between 0.0 and 0.5")
	// ErrRepetitionPenaltyRange indicates repetition penalty outside [1.0, 2.0].
	ErrRepetitionPenaltyRange = errors.New(
		"repetition penalty must be between 1.0 and 2.0",
	)
	// ErrSeedNegative indicates a negative seed.
	ErrSeedNegative = errors.New("seed must be non-negative")
	// ErrUnsupportedLanguage indicates a language code the model does not speak.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Languages lists the language codes supported by the multilingual model.
var Languages = []string{
	"ar", "da", "de", "el", "en", "es", "fi", "fr", "he", "hi", "it", "ja",
	"ko", "ms", "nl", "no", "pl", "pt", "ru", "sv", "sw", "tr", "zh",
}

// Params is the immutable-per-call generation parameter bundle. A bundle is
// persisted alongside every ledger entry so that regeneration and audit can
// recover exactly what produced a given artifact. A zero Seed derives a
// random seed at call time; a nonzero Seed is deterministic.
type Params struct {
	Exaggeration      float64 `json:"exaggeration"       toml:"exaggeration"`
	Temperature       float64 `json:"temperature"        toml:"temperature"`
	CFGWeight         float64 `json:"cfg"                toml:"cfg"`
	TopP              float64 `json:"top_p"              toml:"top_p"`
	MinP              float64 `json:"min_p"              toml:"min_p"`
	RepetitionPenalty float64 `json:"repetition_penalty" toml:"repetition_penalty"`
	Seed              int     `json:"seed"               toml:"seed"`
}

// DefaultParams returns the neutral parameter bundle the studio starts from.
func DefaultParams() Params {
	return Params{
		Exaggeration:      DefaultExaggeration,
		Temperature:       DefaultTemperature,
		CFGWeight:         DefaultCFGWeight,
		TopP:              DefaultTopP,
		MinP:              DefaultMinP,
		RepetitionPenalty: DefaultRepetitionPenalty,
		Seed:              0,
	}
}

// Validate ensures every parameter is within the range the model accepts.
func (p Params) Validate() error {
	if p.Exaggeration < MinExaggeration || p.Exaggeration > MaxExaggeration {
		return fmt.Errorf("%w: got %g", ErrExaggerationRange, p.Exaggeration)
	}

	if p.CFGWeight < MinCFGWeight || p.CFGWeight > MaxCFGWeight {
		return fmt.Errorf("%w: got %g", ErrCFGWeightRange, p.CFGWeight)
	}

	if p.Temperature < MinTemperature || p.Temperature > MaxTemperature {
		return fmt.Errorf("%w: got %g", ErrTemperatureRange, p.Temperature)
	}

	if p.TopP < MinTopP || p.TopP > MaxTopP {
		return fmt.Errorf("%w: got %g", ErrTopPRange, p.TopP)
	}

	if p.MinP < MinMinP || p.MinP > MaxMinP {
		return fmt.Errorf("%w: got %g", ErrMinPRange, p.MinP)
	}

	if p.RepetitionPenalty < MinRepetitionPenalty ||
		p.RepetitionPenalty > MaxRepetitionPenalty {
		return fmt.Errorf("%w: got %g", ErrRepetitionPenaltyRange, p.RepetitionPenalty)
	}

	if p.Seed < 0 {
		return fmt.Errorf("%w: got %d", ErrSeedNegative, p.Seed)
	}

	return nil
}

// SupportedLanguage reports whether the model speaks the given language code.
func SupportedLanguage(code string) bool {
	for _, lang := range Languages {
		if lang == code {
			return true
		}
	}

	return false
}

// ValidateLanguage rejects empty or unsupported language codes.
func ValidateLanguage(code string) error {
	if !SupportedLanguage(code) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	return nil
}
