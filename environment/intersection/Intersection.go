// Package intersection implements a single signalized traffic
// junction as an episodic environment. Two approaches feed the
// junction; vehicles arrive by a Poisson process whose rates are
// randomized per scenario, queue at the stop line, and discharge while
// their approach holds the green phase. Each episode leaves behind a
// tripinfo artifact recording every vehicle that cleared the junction,
// from which per-vehicle delay statistics are computed.
package intersection

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gotraffic/signalrl/environment/tripinfo"
)

const (
	// NumActions is the size of the action space: keep the current
	// phase or switch to the other one
	NumActions = 2

	// NumFeatures is the length of state observation vectors
	NumFeatures = 8

	// Keep and Switch are the two actions
	Keep   = 0
	Switch = 1

	// minGreen is the number of steps a phase must hold before a
	// switch request is honoured
	minGreen = 5

	// saturationFlow is the number of queued vehicles the green
	// approach discharges per step
	saturationFlow = 2

	// maxQueue normalizes queue lengths into occupancies
	maxQueue = 40.0

	// fixedCycle is the phase length of the built-in fixed-time
	// control program
	fixedCycle = 10

	// FixedLabel is the default artifact label of fixed-program
	// rollouts
	FixedLabel = "tripinfo_fixed.xml"
)

// vehicle is one queued vehicle
type vehicle struct {
	id      int
	arrived int // step at which the vehicle joined its queue
}

// Intersection implements environment.Environment for a single
// signalized junction with two approaches (north and east).
type Intersection struct {
	horizon     int
	arrivalRate float64
	rng         *rand.Rand // draws per-episode scenario seeds

	// Current episode
	running   bool
	scenario  uint64 // seed of the current scenario
	arrivals  [2]distuv.Poisson
	queues    [2][]vehicle
	phase     int
	phaseTime int
	t         int
	nextID    int
	trips     []tripinfo.Trip
	outputDir string
	label     string
}

// New returns a new Intersection. The horizon parameter is the number
// of steps over which vehicles arrive: an episode terminates naturally
// once the horizon has passed and the junction has cleared. The
// arrivalRate parameter is the expected number of vehicles arriving
// per approach per step before per-scenario randomization.
func New(horizon int, arrivalRate float64, seed uint64) (*Intersection,
	error) {
	if horizon < 1 {
		return nil, fmt.Errorf("new: horizon must be > 0")
	}
	if arrivalRate <= 0 {
		return nil, fmt.Errorf("new: arrival rate must be > 0")
	}

	return &Intersection{
		horizon:     horizon,
		arrivalRate: arrivalRate,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Actions returns the size of the discrete action space
func (e *Intersection) Actions() int {
	return NumActions
}

// Features returns the length of state observation vectors
func (e *Intersection) Features() int {
	return NumFeatures
}

// reset rebuilds the episode state for the given scenario seed.
// Identical seeds produce identical arrival patterns, which is what
// lets a fixed-program rollout replay the scenario a learned rollout
// saw.
func (e *Intersection) reset(scenario uint64, outputDir, label string) {
	src := rand.NewSource(scenario)
	scenarioRng := rand.New(src)

	// Randomize the demand on each approach
	for a := range e.arrivals {
		e.arrivals[a] = distuv.Poisson{
			Lambda: e.arrivalRate * (0.5 + scenarioRng.Float64()),
			Src:    src,
		}
	}

	e.scenario = scenario
	e.queues = [2][]vehicle{}
	e.phase = 0
	e.phaseTime = 0
	e.t = 0
	e.nextID = 0
	e.trips = nil
	e.outputDir = outputDir
	e.label = label
}

// Start begins a new episode with a freshly randomized scenario,
// writing the episode's trip artifact under outputDir keyed by
// evalLabel on Stop. An empty evalLabel selects the default artifact
// label.
func (e *Intersection) Start(outputDir, evalLabel string) error {
	if e.running {
		return fmt.Errorf("start: episode already running")
	}
	if evalLabel == "" {
		evalLabel = tripinfo.DefaultLabel
	}

	e.reset(e.rng.Uint64(), outputDir, evalLabel)
	e.running = true
	return nil
}

// Stop ends the current episode and writes its trip artifact. Vehicles
// still queued at Stop time never cleared the junction and are not
// recorded.
func (e *Intersection) Stop() error {
	if !e.running {
		return fmt.Errorf("stop: no episode running")
	}
	e.running = false

	if err := tripinfo.Write(e.outputDir, e.label, e.trips); err != nil {
		return fmt.Errorf("stop: %v", err)
	}
	return nil
}

// meanWait returns the mean number of steps the vehicles in queue have
// been waiting
func (e *Intersection) meanWait(queue []vehicle) float64 {
	if len(queue) == 0 {
		return 0
	}
	var wait float64
	for _, v := range queue {
		wait += float64(e.t - v.arrived)
	}
	return wait / float64(len(queue))
}

// observe builds the current state observation: per-approach
// occupancies and speed proxies, the phase one-hot, the normalized
// phase timer, and the queue pressure difference.
func (e *Intersection) observe() *mat.VecDense {
	obs := make([]float64, NumFeatures)

	for a, queue := range e.queues {
		occupancy := float64(len(queue)) / maxQueue
		if occupancy > 1 {
			occupancy = 1
		}
		obs[a] = occupancy
		obs[2+a] = 1 / (1 + e.meanWait(queue))
	}
	obs[4+e.phase] = 1
	obs[6] = float64(e.phaseTime) / float64(4*minGreen)
	if obs[6] > 1 {
		obs[6] = 1
	}
	obs[7] = (float64(len(e.queues[0])) - float64(len(e.queues[1]))) / maxQueue

	return mat.NewVecDense(NumFeatures, obs)
}

// State returns the current state observation
func (e *Intersection) State() mat.Vector {
	return e.observe()
}

// Step advances the simulation by one signal decision interval
func (e *Intersection) Step(action int) (mat.Vector, float64, mat.Vector,
	bool, error) {
	if !e.running {
		return nil, 0, nil, false, fmt.Errorf("step: no episode running")
	}
	if action < 0 || action >= NumActions {
		return nil, 0, nil, false, fmt.Errorf("step: no such action %v",
			action)
	}

	state := e.observe()

	// Switch requests are only honoured after the minimum green time
	if action == Switch && e.phaseTime >= minGreen {
		e.phase = 1 - e.phase
		e.phaseTime = 0
	} else {
		e.phaseTime++
	}

	// New vehicles arrive while the demand horizon lasts
	if e.t < e.horizon {
		for a := range e.queues {
			n := int(e.arrivals[a].Rand())
			for i := 0; i < n; i++ {
				e.queues[a] = append(e.queues[a],
					vehicle{id: e.nextID, arrived: e.t})
				e.nextID++
			}
		}
	}

	// The green approach discharges up to the saturation flow
	queue := e.queues[e.phase]
	n := saturationFlow
	if n > len(queue) {
		n = len(queue)
	}
	for _, v := range queue[:n] {
		wait := e.t - v.arrived
		e.trips = append(e.trips, tripinfo.Trip{
			ID:       fmt.Sprintf("veh%d", v.id),
			Depart:   float64(v.arrived),
			Arrival:  float64(e.t),
			Duration: float64(wait + 1),
			TimeLoss: float64(wait),
		})
	}
	e.queues[e.phase] = queue[n:]

	reward := -float64(len(e.queues[0]) + len(e.queues[1]))

	e.t++
	done := e.t >= e.horizon &&
		len(e.queues[0]) == 0 && len(e.queues[1]) == 0
	nextState := e.observe()

	return state, reward, nextState, done, nil
}

// RunFixed replays the most recent scenario under the built-in
// fixed-time program (switch phases every fixedCycle steps) and
// returns the rollout's total reward, length, and mean vehicle delay.
// An empty evalLabel selects FixedLabel for the trip artifact.
func (e *Intersection) RunFixed(outputDir, evalLabel string) (float64, int,
	float64, error) {
	if e.running {
		return 0, 0, 0, fmt.Errorf("runfixed: episode still running")
	}
	if evalLabel == "" {
		evalLabel = FixedLabel
	}

	e.reset(e.scenario, outputDir, evalLabel)
	e.running = true

	var totalReward float64
	length := 0

	// The fixed program cannot terminate on its own, so cap it well
	// past the demand horizon
	for length < 3*e.horizon {
		action := Keep
		if e.phaseTime >= fixedCycle {
			action = Switch
		}

		_, reward, _, done, err := e.Step(action)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("runfixed: %v", err)
		}
		totalReward += reward
		length++

		if done {
			break
		}
	}

	if err := e.Stop(); err != nil {
		return 0, 0, 0, fmt.Errorf("runfixed: %v", err)
	}

	delays, err := tripinfo.VehicleDelays(outputDir, evalLabel)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("runfixed: %v", err)
	}
	meanDelay := 0.0
	if len(delays) > 0 {
		meanDelay, _ = tripinfo.MeanDelay(delays)
	}

	return totalReward, length, meanDelay, nil
}
