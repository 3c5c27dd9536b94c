package initwfn

import G "gorgonia.org/gorgonia"

// UniformConfig implements a configuration of uniform random weight
// initialization over [Low, High).
type UniformConfig struct {
	Low  float64
	High float64
}

// NewUniform returns a new uniform random weight initializer
func NewUniform(low, high float64) *InitWFn {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

// Type returns the type of initialization algorithm described by the
// configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (u UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}
