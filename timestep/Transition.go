// Package timestep implements single steps of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition packages together one environmental step: the state the
// environment was in, the action taken in that state, the reward
// received, the state transitioned to, and whether the episode ended
// on this step.
//
// Transitions are immutable once constructed. The state vectors are
// copied on construction so that later environment mutation cannot
// alter a stored Transition.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// New constructs a new Transition, deep copying the state vectors.
func New(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) Transition {
	return Transition{
		State:     mat.VecDenseCopyOf(state),
		Action:    action,
		Reward:    reward,
		NextState: mat.VecDenseCopyOf(nextState),
		Done:      done,
	}
}

// Features returns the length of the state vectors in the Transition.
func (t Transition) Features() int {
	return t.State.Len()
}

func (t Transition) String() string {
	str := "Transition | Action: %v  |  Reward: %.2f  |  Done: %v"
	return fmt.Sprintf(str, t.Action, t.Reward, t.Done)
}
