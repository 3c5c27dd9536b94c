package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector implements functionality for choosing which stored
// transitions a sampled batch is built from
type Selector interface {
	// choose selects the slot indices at which data should be read
	// from the experience replay buffer
	choose(c *cache, n int) []int
}

// uniformSelector is a Selector which selects transitions from an
// experience replay buffer uniformly randomly with replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects transitions
// uniformly randomly, with replacement, from an experience replay
// buffer
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{rng: rand.New(rand.NewSource(seed))}
}

// choose selects n slot indices at which to read data from the buffer
func (u *uniformSelector) choose(c *cache, n int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = c.inUse(u.rng.Intn(c.Capacity()))
	}
	return selected
}
