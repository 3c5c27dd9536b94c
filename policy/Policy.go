// Package policy implements the action-selection strategies an agent
// can use when interacting with an environment: exploration,
// exploitation, and the tradeoffs between them.
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Type enumerates the available action-selection strategies
type Type string

// Available policy types
const (
	// RandUniform selects among all actions uniformly randomly,
	// ignoring action values
	RandUniform Type = "randUni"

	// Greedy always selects the action with the highest value
	Greedy Type = "greedy"

	// EpsGreedy selects a uniformly random action with fixed
	// probability ε and the greedy action otherwise
	EpsGreedy Type = "epsGreedy"

	// LinDecEpsGreedy is ε-greedy with ε linearly annealed from a
	// starting to a final value over a fixed number of global steps
	LinDecEpsGreedy Type = "linDecEpsGreedy"
)

// Config holds the policy-specific parameters used when constructing a
// Selector. Only the fields relevant to the constructed Type are read.
type Config struct {
	// Epsilon is the exploration probability of an EpsGreedy policy
	Epsilon float64

	// EpsilonStart, EpsilonEnd, and DecaySteps describe the annealing
	// schedule of a LinDecEpsGreedy policy: ε is interpolated from
	// EpsilonStart at step 0 to EpsilonEnd at step DecaySteps and held
	// there afterwards.
	EpsilonStart float64
	EpsilonEnd   float64
	DecaySteps   int
}

// Selector selects actions from a discrete action space given the
// current action-value estimates. The step parameter is the agent's
// global step counter, which drives annealing schedules; policies
// without a schedule ignore it.
type Selector interface {
	SelectAction(q mat.Vector, step int) (int, error)
}

// New returns a Selector implementing the given policy Type over a
// discrete action space of the given size. An unknown Type or an
// invalid Config is a configuration error.
func New(t Type, c Config, actions int, seed uint64) (Selector, error) {
	if actions < 1 {
		return nil, fmt.Errorf("new: policy needs a positive action count"+
			"\n\thave(%v)", actions)
	}
	rng := rand.New(rand.NewSource(seed))

	switch t {
	case RandUniform:
		return &randUniform{actions: actions, rng: rng}, nil

	case Greedy:
		return &greedy{}, nil

	case EpsGreedy:
		if c.Epsilon < 0 || c.Epsilon > 1 {
			return nil, fmt.Errorf("new: epsilon must be in [0, 1]"+
				"\n\thave(%v)", c.Epsilon)
		}
		return &epsGreedy{epsilon: c.Epsilon, actions: actions, rng: rng}, nil

	case LinDecEpsGreedy:
		if c.EpsilonStart < c.EpsilonEnd {
			return nil, fmt.Errorf("new: epsilon cannot anneal upward"+
				"\n\tstart(%v)\n\tend(%v)", c.EpsilonStart, c.EpsilonEnd)
		}
		if c.DecaySteps < 1 {
			return nil, fmt.Errorf("new: decay steps must be > 0"+
				"\n\thave(%v)", c.DecaySteps)
		}
		return &linDecEpsGreedy{
			start:   c.EpsilonStart,
			end:     c.EpsilonEnd,
			steps:   c.DecaySteps,
			actions: actions,
			rng:     rng,
		}, nil
	}

	return nil, fmt.Errorf("new: no such policy type %q", t)
}

// argmax returns the index of the maximum action value, breaking ties
// in favour of the lowest index
func argmax(q mat.Vector) (int, error) {
	if q == nil || q.Len() == 0 {
		return 0, fmt.Errorf("argmax: no action values given")
	}
	action := 0
	for i := 1; i < q.Len(); i++ {
		if q.AtVec(i) > q.AtVec(action) {
			action = i
		}
	}
	return action, nil
}

// randUniform selects actions uniformly randomly
type randUniform struct {
	actions int
	rng     *rand.Rand
}

// SelectAction selects an action uniformly randomly. The action-value
// estimates q may be nil.
func (r *randUniform) SelectAction(mat.Vector, int) (int, error) {
	return r.rng.Intn(r.actions), nil
}

// greedy always selects the highest-valued action
type greedy struct{}

// SelectAction selects the action with the maximum value estimate
func (g *greedy) SelectAction(q mat.Vector, _ int) (int, error) {
	return argmax(q)
}

// epsGreedy selects a random action with fixed probability epsilon and
// the greedy action otherwise
type epsGreedy struct {
	epsilon float64
	actions int
	rng     *rand.Rand
}

// SelectAction selects an ε-greedy action
func (e *epsGreedy) SelectAction(q mat.Vector, _ int) (int, error) {
	if e.rng.Float64() < e.epsilon {
		return e.rng.Intn(e.actions), nil
	}
	return argmax(q)
}

// linDecEpsGreedy is ε-greedy with a linearly annealed ε
type linDecEpsGreedy struct {
	start   float64
	end     float64
	steps   int
	actions int
	rng     *rand.Rand
}

// Epsilon returns the annealed exploration probability at the given
// global step
func (l *linDecEpsGreedy) Epsilon(step int) float64 {
	if step >= l.steps {
		return l.end
	}
	return l.start - (l.start-l.end)*float64(step)/float64(l.steps)
}

// SelectAction selects an ε-greedy action with ε annealed by the
// global step counter
func (l *linDecEpsGreedy) SelectAction(q mat.Vector, step int) (int, error) {
	if l.rng.Float64() < l.Epsilon(step) {
		return l.rng.Intn(l.actions), nil
	}
	return argmax(q)
}
