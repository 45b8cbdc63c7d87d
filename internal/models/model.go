// Package models defines the compartmental model families, their rate
// parameters and the dashboard controls that feed them.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedModel is returned when a model label is not one of SIR, SEIR or SEIRS.
var ErrUnsupportedModel = errors.New("models: unsupported model type")

// ModelType identifies a compartmental model family.
//
// SEIRS is not a separate algorithm: it runs the SEIR kernel with a non-zero
// turnover rate, so recovered mass returns to S only through births.
type ModelType int

const (
	SIR ModelType = iota + 1
	SEIR
	SEIRS
)

// AllModels lists every supported model in display order.
var AllModels = []ModelType{SIR, SEIR, SEIRS}

// ParseModelType maps a case-insensitive label to a ModelType.
func ParseModelType(label string) (ModelType, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "SIR":
		return SIR, nil
	case "SEIR":
		return SEIR, nil
	case "SEIRS":
		return SEIRS, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedModel, label)
	}
}

// String returns the upper-case label used for rendering dispatch.
func (m ModelType) String() string {
	switch m {
	case SIR:
		return "SIR"
	case SEIR:
		return "SEIR"
	case SEIRS:
		return "SEIRS"
	default:
		return fmt.Sprintf("ModelType(%d)", int(m))
	}
}

// Valid returns true if m is one of the declared model types.
func (m ModelType) Valid() bool {
	return m == SIR || m == SEIR || m == SEIRS
}

// HasExposed reports whether the model carries an E compartment.
func (m ModelType) HasExposed() bool {
	return m == SEIR || m == SEIRS
}

// Turnover reports whether the model uses demographic turnover (mu > 0).
func (m ModelType) Turnover() bool {
	return m == SEIRS
}

// Compartments returns the compartment column names in table order.
func (m ModelType) Compartments() []string {
	if m.HasExposed() {
		return []string{"S", "E", "I", "R"}
	}
	return []string{"S", "I", "R"}
}

// FlowColumns returns the per-step incidence column names in table order.
func (m ModelType) FlowColumns() []string {
	if m.HasExposed() {
		return []string{"newE", "newI", "newR"}
	}
	return []string{"newI", "newR"}
}

// MarshalText implements encoding.TextMarshaler so model types render as labels
// in JSON and YAML.
func (m ModelType) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, m.String())
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModelType) UnmarshalText(text []byte) error {
	parsed, err := ParseModelType(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
