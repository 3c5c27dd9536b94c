// Package expreplay implements experience replay buffers that store
// environmental transitions and hand them back in sampled batches.
package expreplay

import (
	"fmt"

	"github.com/gammazero/deque"
	"gonum.org/v1/gonum/mat"

	"github.com/gotraffic/signalrl/timestep"
)

// Buffer implements an experience replay buffer. The sampling policy
// is owned by the Buffer, not by its callers: callers only state how
// many transitions a batch should hold.
type Buffer interface {
	// Append adds a transition to the buffer, evicting the oldest
	// stored transition if the buffer is at maximum capacity.
	Append(t timestep.Transition) error

	// Sample draws a batch of n transitions. The returned matrices
	// hold one state per row and the slices are aligned: row i of
	// states, actions[i], rewards[i], row i of nextStates, and
	// dones[i] all belong to the same transition.
	Sample(n int) (states *mat.Dense, actions []int, rewards []float64,
		nextStates *mat.Dense, dones []bool, err error)

	// Capacity returns the current number of transitions in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable transitions in the
	// buffer
	MaxCapacity() int

	// MinCapacity returns the number of transitions required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int
}

// cache implements a concrete Buffer backed by flat caches. State
// vectors are stored contiguously, one featureSize-length block per
// buffer slot.
type cache struct {
	stateCache     []float64
	actionCache    []int
	rewardCache    []float64
	nextStateCache []float64
	doneCache      []bool

	// orderOfInsert holds the in-use slot indices in chronological
	// insertion order. Its front is the oldest transition and the
	// first eviction candidate.
	orderOfInsert *deque.Deque

	// The slot indices that hold no data
	emptyIndices []int

	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
}

// New creates and returns a new Buffer. The sampler parameter is a
// Selector which determines how batches are drawn from the buffer. The
// featureSize parameter is the length of the state vectors stored.
// Transitions are evicted oldest-first once maxCapacity is reached,
// and sampling is refused until minCapacity transitions have been
// stored.
func New(sampler Selector, minCapacity, maxCapacity,
	featureSize int) (Buffer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maxCapacity (%v) < minCapacity (%v)",
			maxCapacity, minCapacity)
	}
	if featureSize <= 0 {
		return nil, fmt.Errorf("new: featureSize must be > 0")
	}

	emptyIndices := make([]int, maxCapacity)
	for i := range emptyIndices {
		emptyIndices[i] = i
	}

	return &cache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]int, maxCapacity),
		rewardCache:    make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		doneCache:      make([]bool, maxCapacity),

		orderOfInsert: &deque.Deque{},
		emptyIndices:  emptyIndices,

		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
	}, nil
}

// Append adds a transition to the cache
func (c *cache) Append(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("append: invalid feature size \n\twant(%v)"+
			"\n\thave(%v)", c.featureSize, t.State.Len())
	}

	var index int
	if len(c.emptyIndices) > 0 {
		last := len(c.emptyIndices) - 1
		index = c.emptyIndices[last]
		c.emptyIndices = c.emptyIndices[:last]
	} else {
		// Full: reuse the slot of the oldest transition
		index = c.orderOfInsert.PopFront().(int)
	}
	c.orderOfInsert.PushBack(index)

	stateInd := index * c.featureSize
	for i := 0; i < c.featureSize; i++ {
		c.stateCache[stateInd+i] = t.State.AtVec(i)
		c.nextStateCache[stateInd+i] = t.NextState.AtVec(i)
	}
	c.actionCache[index] = t.Action
	c.rewardCache[index] = t.Reward
	c.doneCache[index] = t.Done

	return nil
}

// Sample samples and returns a batch of n transitions from the replay
// buffer
func (c *cache) Sample(n int) (*mat.Dense, []int, []float64, *mat.Dense,
	[]bool, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{Op: "sample", Err: errEmptyBuffer}
		return nil, nil, nil, nil, nil, err
	}
	if c.Capacity() < c.MinCapacity() {
		err := &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
		return nil, nil, nil, nil, nil, err
	}
	if n <= 0 {
		return nil, nil, nil, nil, nil,
			fmt.Errorf("sample: batch size must be > 0")
	}

	indices := c.sampler.choose(c, n)

	states := mat.NewDense(n, c.featureSize, nil)
	nextStates := mat.NewDense(n, c.featureSize, nil)
	actions := make([]int, n)
	rewards := make([]float64, n)
	dones := make([]bool, n)

	for i, index := range indices {
		expStartInd := index * c.featureSize
		states.SetRow(i,
			c.stateCache[expStartInd:expStartInd+c.featureSize])
		nextStates.SetRow(i,
			c.nextStateCache[expStartInd:expStartInd+c.featureSize])
		actions[i] = c.actionCache[index]
		rewards[i] = c.rewardCache[index]
		dones[i] = c.doneCache[index]
	}

	return states, actions, rewards, nextStates, dones, nil
}

// Capacity returns the current number of transitions in the cache that
// are available for sampling
func (c *cache) Capacity() int {
	return c.orderOfInsert.Len()
}

// MaxCapacity returns the maximum number of transitions that are
// allowed in the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of transitions required in
// the cache before sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// inUse returns the slot index of the i'th oldest stored transition
func (c *cache) inUse(i int) int {
	return c.orderOfInsert.At(i).(int)
}
