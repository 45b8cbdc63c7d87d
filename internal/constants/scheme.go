package constants

// Scheme names the discretization used for flows between compartments.
type Scheme string

const (
	// SchemeLinear computes each flow as rate × stock × dt (explicit Euler).
	SchemeLinear Scheme = "linear"

	// SchemeExponential computes each flow as stock × (1 − exp(−rate × dt)),
	// which never removes more than the available stock in one step.
	SchemeExponential Scheme = "exponential"
)

// Valid returns true if the scheme is a recognized value.
func (s Scheme) Valid() bool {
	switch s {
	case SchemeLinear, SchemeExponential:
		return true
	}
	return false
}

// Exponential reports whether the scheme uses the hazard form.
func (s Scheme) Exponential() bool {
	return s == SchemeExponential
}

// String returns the string representation of the scheme.
func (s Scheme) String() string {
	return string(s)
}
