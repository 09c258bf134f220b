package service

import "strings"

// Mode selects which services the supervisor launches.
type Mode string

const (
	// ModeA launches the prediction service only.
	ModeA Mode = "A"
	// ModeB launches the UI service only.
	ModeB Mode = "B"
	// ModeBoth launches the prediction and UI services concurrently.
	ModeBoth Mode = "Both"
)

// Modes lists every recognized mode in canonical spelling.
var Modes = []Mode{ModeA, ModeB, ModeBoth}

// ParseMode matches s case-insensitively against the known modes.
// Surrounding whitespace is ignored; anything else is an InvalidModeError.
func ParseMode(s string) (Mode, error) {
	v := strings.TrimSpace(s)
	for _, m := range Modes {
		if strings.EqualFold(v, string(m)) {
			return m, nil
		}
	}
	return "", &InvalidModeError{Value: s}
}

// Single reports whether the mode supervises exactly one service.
func (m Mode) Single() bool { return m == ModeA || m == ModeB }

// Catalog holds the known service specs, one per launchable service.
type Catalog struct {
	Predict Spec
	UI      Spec
}

// Resolve returns the ordered specs implied by mode. The prediction service
// always precedes the UI service when both are selected.
func Resolve(mode string, cat Catalog) ([]Spec, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return cat.For(m), nil
}

// For returns the specs for an already parsed mode.
func (c Catalog) For(m Mode) []Spec {
	switch m {
	case ModeA:
		return []Spec{c.Predict}
	case ModeB:
		return []Spec{c.UI}
	case ModeBoth:
		return []Spec{c.Predict, c.UI}
	}
	return nil
}
