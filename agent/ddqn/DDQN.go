// Package ddqn implements the double deep Q-network agent for learned
// traffic-signal control.
//
// The agent owns two structurally identical value networks. The online
// network is trained continuously and selects the best next action;
// the target network is a slowly updated copy of the online network
// and evaluates that action's value. Decoupling action selection from
// action evaluation in the bootstrap target reduces the value
// overestimation bias of single-network Q-learning:
//
//	https://arxiv.org/abs/1509.06461
//
// The target network is resynchronized by hard whole-weight copy on a
// fixed step cadence, never by partial or soft updates.
package ddqn

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aunum/log"
	"gonum.org/v1/gonum/mat"

	"github.com/gotraffic/signalrl/environment"
	"github.com/gotraffic/signalrl/environment/tripinfo"
	"github.com/gotraffic/signalrl/expreplay"
	"github.com/gotraffic/signalrl/network"
	"github.com/gotraffic/signalrl/policy"
	"github.com/gotraffic/signalrl/timestep"
	"github.com/gotraffic/signalrl/tracker"
)

// weightRecordFreq is the cadence, in global steps, of online-network
// weight histogram records when episode recording is enabled
const weightRecordFreq = 100

// DDQN implements the double deep Q-network agent. The global step
// counter itr and the episode counter are owned exclusively by the
// agent: itr advances once per training step and drives the target
// sync cadence, the checkpoint cadence, and annealing policies.
type DDQN struct {
	online network.QNetwork
	target network.QNetwork
	replay expreplay.Buffer
	env    environment.Environment
	sink   tracker.Sink
	config Config

	itr      int
	episodes int
}

// New returns a new DDQN agent. Both networks are compiled with the
// configured solver and loss, and the online network's weights are
// cloned into the target network so the run starts from identical
// weight sets. Structural mismatch between the networks and the
// environment is a configuration error.
func New(online, target network.QNetwork, replay expreplay.Buffer,
	env environment.Environment, config Config,
	sink tracker.Sink) (*DDQN, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid configuration: %v", err)
	}

	if online.Features() != env.Features() ||
		target.Features() != env.Features() {
		return nil, fmt.Errorf("new: network features incompatible with "+
			"environment \n\twant(%v) \n\thave(%v, %v)", env.Features(),
			online.Features(), target.Features())
	}
	if online.Outputs() != env.Actions() ||
		target.Outputs() != env.Actions() {
		return nil, fmt.Errorf("new: network outputs incompatible with "+
			"action space \n\twant(%v) \n\thave(%v, %v)", env.Actions(),
			online.Outputs(), target.Outputs())
	}

	if err := online.Compile(config.Solver, config.Loss,
		config.BatchSize); err != nil {
		return nil, fmt.Errorf("new: could not compile online network: %v",
			err)
	}
	if err := target.Compile(config.Solver, config.Loss,
		config.BatchSize); err != nil {
		return nil, fmt.Errorf("new: could not compile target network: %v",
			err)
	}

	if err := target.SetWeights(online.Weights()); err != nil {
		return nil, fmt.Errorf("new: could not clone online weights: %v",
			err)
	}

	if sink == nil {
		sink = tracker.NewNoOp()
	}

	return &DDQN{
		online: online,
		target: target,
		replay: replay,
		env:    env,
		sink:   sink,
		config: config,
	}, nil
}

// Itr returns the agent's global step counter
func (d *DDQN) Itr() int {
	return d.itr
}

// FillReplay fills the replay buffer with exactly NumBurnIn
// transitions collected under a uniform random policy, restarting the
// environment across episode boundaries as needed. No network update
// runs during burn-in and the global step counter does not advance.
func (d *DDQN) FillReplay() error {
	selector, err := policy.New(policy.RandUniform, policy.Config{},
		d.env.Actions(), d.config.Seed)
	if err != nil {
		return fmt.Errorf("fillreplay: %v", err)
	}

	if err := d.env.Start(d.config.OutputDir, ""); err != nil {
		return fmt.Errorf("fillreplay: %v", err)
	}

	for n := 0; n < d.config.NumBurnIn; n++ {
		action, err := selector.SelectAction(nil, d.itr)
		if err != nil {
			return fmt.Errorf("fillreplay: %v", err)
		}

		state, reward, nextState, done, err := d.env.Step(action)
		if err != nil {
			return fmt.Errorf("fillreplay: %v", err)
		}

		t := timestep.New(state, action, reward, nextState, done)
		if err := d.replay.Append(t); err != nil {
			return fmt.Errorf("fillreplay: %v", err)
		}

		if done {
			if err := d.env.Stop(); err != nil {
				return fmt.Errorf("fillreplay: %v", err)
			}
			if err := d.env.Start(d.config.OutputDir, ""); err != nil {
				return fmt.Errorf("fillreplay: %v", err)
			}
		}
	}

	if err := d.env.Stop(); err != nil {
		return fmt.Errorf("fillreplay: %v", err)
	}
	return nil
}

// UpdateNetwork runs one double-Q update and returns the fit loss.
//
// A batch is sampled from the replay buffer and a target matrix is
// built by cloning the online network's own predictions for the batch
// states, then overwriting only the taken-action slot of each row with
// the double-Q target: the reward alone for terminal transitions, and
// otherwise the reward plus the discounted target-network value of the
// action the online network ranks best in the next state. Since all
// non-taken-action entries equal the online prediction exactly, they
// contribute zero gradient and the regression penalizes only the
// taken-action dimension.
//
// On the target sync cadence the online weights are hard-copied into
// the target network, and on the checkpoint cadence a model checkpoint
// is written when checkpointing is enabled.
func (d *DDQN) UpdateNetwork() (float64, error) {
	states, actions, rewards, nextStates, dones, err :=
		d.replay.Sample(d.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("updatenetwork: %v", err)
	}

	qStates, err := d.online.Predict(states)
	if err != nil {
		return 0, fmt.Errorf("updatenetwork: %v", err)
	}
	qNextOnline, err := d.online.Predict(nextStates)
	if err != nil {
		return 0, fmt.Errorf("updatenetwork: %v", err)
	}
	qNextTarget, err := d.target.Predict(nextStates)
	if err != nil {
		return 0, fmt.Errorf("updatenetwork: %v", err)
	}

	targets := mat.DenseCopyOf(qStates)
	rows, _ := targets.Dims()
	var tdSquares float64

	for i := 0; i < rows; i++ {
		var value float64
		if dones[i] {
			value = rewards[i]
		} else {
			// Selection by the online network, evaluation by the
			// target network
			best, err := rowArgMax(qNextOnline, i)
			if err != nil {
				return 0, fmt.Errorf("updatenetwork: %v", err)
			}
			value = rewards[i] +
				d.config.Gamma*qNextTarget.At(i, best)
		}

		td := value - qStates.At(i, actions[i])
		tdSquares += td * td
		targets.Set(i, actions[i], value)
	}

	loss, err := d.online.Fit(states, targets, d.config.BatchSize, 1)
	if err != nil {
		return 0, fmt.Errorf("updatenetwork: could not fit online "+
			"network: %v", err)
	}

	if d.config.Monitoring {
		d.sink.Scalar("update/loss", loss, d.itr)
		d.sink.Scalar("update/td_error_mse", tdSquares/float64(rows),
			d.itr)
	}

	if d.itr%d.config.TargetUpdateFreq == 0 {
		if err := d.target.SetWeights(d.online.Weights()); err != nil {
			return 0, fmt.Errorf("updatenetwork: could not sync target "+
				"network: %v", err)
		}
	}

	if d.itr%d.config.saveAfter() == 0 && d.itr > 0 &&
		d.config.Monitoring && d.config.ModelCheckpoint {
		if err := d.Save(); err != nil {
			return 0, fmt.Errorf("updatenetwork: %v", err)
		}
	}

	return loss, nil
}

// Train runs numEpisodes training episodes under the given
// action-selection policy and returns one statistics record per
// episode, plus one fixed-baseline record per episode when evalFixed
// is set. Each episode runs until the environment signals termination
// or the length cap truncates it; truncated episodes report the
// TruncatedMeanDelay sentinel.
func (d *DDQN) Train(numEpisodes int, policyType policy.Type,
	policyConfig policy.Config, evalFixed bool) ([]EpisodeStats, error) {
	selector, err := policy.New(policyType, policyConfig,
		d.env.Actions(), d.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}

	var stats []EpisodeStats

	for ep := 0; ep < numEpisodes; ep++ {
		record, err := d.trainEpisode(selector)
		if err != nil {
			return stats, fmt.Errorf("train: episode %v: %v", ep, err)
		}
		stats = append(stats, record)
		log.Infof("episode %v (%v): reward %.1f, length %v, mean "+
			"delay %.2f", record.EpisodeID, record.Label,
			record.TotalReward, record.EpisodeLength, record.MeanDelay)

		if evalFixed {
			fixed, err := d.fixedEpisode(record.EpisodeID, "")
			if err != nil {
				return stats, fmt.Errorf("train: episode %v: %v", ep, err)
			}
			stats = append(stats, fixed)
			log.Infof("episode %v (%v): reward %.1f, length %v, mean "+
				"delay %.2f", fixed.EpisodeID, fixed.Label,
				fixed.TotalReward, fixed.EpisodeLength, fixed.MeanDelay)
		}
	}

	if err := d.sink.Save(); err != nil {
		return stats, fmt.Errorf("train: could not save telemetry: %v",
			err)
	}
	return stats, nil
}

// trainEpisode runs one training episode and returns its statistics
func (d *DDQN) trainEpisode(selector policy.Selector) (EpisodeStats,
	error) {
	if err := d.env.Start(d.config.OutputDir, ""); err != nil {
		return EpisodeStats{}, err
	}

	var totalReward float64
	length := 0
	done := false

	for !done && length < d.config.MaxEpLen {
		q, err := d.qValues(d.env.State())
		if err != nil {
			return EpisodeStats{}, err
		}
		action, err := selector.SelectAction(q, d.itr)
		if err != nil {
			return EpisodeStats{}, err
		}

		state, reward, nextState, stepDone, err := d.env.Step(action)
		if err != nil {
			return EpisodeStats{}, err
		}

		t := timestep.New(state, action, reward, nextState, stepDone)
		if err := d.replay.Append(t); err != nil {
			return EpisodeStats{}, err
		}

		if d.itr%d.config.TrainFreq == 0 {
			if _, err := d.UpdateNetwork(); err != nil {
				return EpisodeStats{}, err
			}
		}

		if d.config.Monitoring && d.config.EpisodeRecording {
			d.sink.Scalar("step/reward", reward, d.itr)
			d.sink.Scalar("step/q_taken", q.AtVec(action), d.itr)
			if d.itr%weightRecordFreq == 0 {
				d.recordWeights()
			}
		}

		totalReward += reward
		length++
		d.itr++
		done = stepDone
	}

	if err := d.env.Stop(); err != nil {
		return EpisodeStats{}, err
	}

	meanDelay := TruncatedMeanDelay
	if done {
		delay, delays, err := d.episodeDelay(tripinfo.DefaultLabel)
		if err != nil {
			return EpisodeStats{}, err
		}
		meanDelay = delay
		if d.config.Monitoring {
			d.sink.Histogram("episode/vehicle_delay", delays, d.episodes)
		}
	}

	record := EpisodeStats{
		EpisodeID:     d.episodes,
		TotalReward:   totalReward,
		EpisodeLength: length,
		MeanDelay:     meanDelay,
		Label:         LabelRL,
	}
	if d.config.Monitoring {
		d.recordEpisode(record)
	}
	d.episodes++

	return record, nil
}

// fixedEpisode runs the environment's fixed control program on the
// scenario of the episode just finished and returns its statistics
func (d *DDQN) fixedEpisode(episodeID int,
	evalLabel string) (EpisodeStats, error) {
	totalReward, length, meanDelay, err :=
		d.env.RunFixed(d.config.OutputDir, evalLabel)
	if err != nil {
		return EpisodeStats{}, err
	}

	record := EpisodeStats{
		EpisodeID:     episodeID,
		TotalReward:   totalReward,
		EpisodeLength: length,
		MeanDelay:     meanDelay,
		Label:         LabelFixed,
	}
	if d.config.Monitoring {
		d.recordEpisode(record)
	}
	return record, nil
}

// recordWeights emits one histogram record per online-network weight
// tensor, keyed by the global step
func (d *DDQN) recordWeights() {
	for i, w := range d.online.Weights() {
		values, ok := w.Data().([]float64)
		if !ok {
			continue
		}
		d.sink.Histogram(fmt.Sprintf("weights/online/%d", i), values,
			d.itr)
	}
}

// recordEpisode emits the end-of-episode scalar records, keyed by
// episode index
func (d *DDQN) recordEpisode(record EpisodeStats) {
	prefix := "episode/" + record.Label + "/"
	d.sink.Scalar(prefix+"total_reward", record.TotalReward,
		record.EpisodeID)
	d.sink.Scalar(prefix+"length", float64(record.EpisodeLength),
		record.EpisodeID)
	d.sink.Scalar(prefix+"mean_delay", record.MeanDelay,
		record.EpisodeID)
}

// Evaluate runs one full episode under the given policy with no
// network updates and no replay writes, recording every transition.
// After the learned rollout, the fixed control program is run on the
// same scenario. Evaluate returns the transition trace, the mean
// vehicle delay of the learned rollout (TruncatedMeanDelay if it was
// truncated), and the mean vehicle delay of the fixed rollout.
func (d *DDQN) Evaluate(policyType policy.Type,
	policyConfig policy.Config, evalLabel string) ([]EvalTransition,
	float64, float64, error) {
	selector, err := policy.New(policyType, policyConfig,
		d.env.Actions(), d.config.Seed)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
	}

	label := fmt.Sprintf("tripinfo_eval_%v.xml", evalLabel)
	fixedLabel := fmt.Sprintf("tripinfo_eval_fixed_%v.xml", evalLabel)

	if err := d.env.Start(d.config.OutputDir, label); err != nil {
		return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
	}

	var trace []EvalTransition
	done := false

	for it := 0; !done && it < d.config.MaxEpLen; it++ {
		q, err := d.qValues(d.env.State())
		if err != nil {
			return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
		}
		action, err := selector.SelectAction(q, d.itr)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
		}

		state, reward, nextState, stepDone, err := d.env.Step(action)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
		}

		trace = append(trace, EvalTransition{
			It:        it,
			State:     mat.VecDenseCopyOf(state),
			QValues:   q,
			Action:    action,
			Reward:    reward,
			NextState: mat.VecDenseCopyOf(nextState),
		})
		done = stepDone
	}

	if err := d.env.Stop(); err != nil {
		return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
	}

	meanDelay := TruncatedMeanDelay
	if done {
		meanDelay, _, err = d.episodeDelay(label)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
		}
	}

	_, _, fixedDelay, err := d.env.RunFixed(d.config.OutputDir,
		fixedLabel)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("evaluate: %v", err)
	}

	return trace, meanDelay, fixedDelay, nil
}

// Save writes the online network's weights to a checkpoint file keyed
// by the run identifier and the current global step. Checkpoint files
// are never overwritten since the step counter only advances.
func (d *DDQN) Save() error {
	dir := filepath.Join(d.config.OutputDir, "model_checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save: could not create checkpoint "+
			"directory: %v", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("run%d_iter%d",
		d.config.ExperimentID, d.itr))
	if err := d.online.Save(path); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load restores the online network's weights from the checkpoint at
// path. The target network is left untouched; callers wanting both
// networks restored must resync explicitly.
func (d *DDQN) Load(path string) error {
	if err := d.online.LoadWeights(path); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return nil
}

// qValues returns the online network's value estimates for one state
func (d *DDQN) qValues(state mat.Vector) (mat.Vector, error) {
	features := d.online.Features()
	x := mat.NewDense(1, features, nil)
	for i := 0; i < features; i++ {
		x.Set(0, i, state.AtVec(i))
	}

	pred, err := d.online.Predict(x)
	if err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(pred.RowView(0)), nil
}

// episodeDelay reads back the per-vehicle delays of the episode
// artifact with the given label and returns their mean along with the
// delays themselves. An episode in which no vehicle finished reports a
// zero mean since the mean of an empty set is undefined.
func (d *DDQN) episodeDelay(label string) (float64, []float64, error) {
	delays, err := tripinfo.VehicleDelays(d.config.OutputDir, label)
	if err != nil {
		return 0, nil, err
	}
	if len(delays) == 0 {
		return 0, nil, nil
	}

	mean, err := tripinfo.MeanDelay(delays)
	if err != nil {
		return 0, nil, err
	}
	return mean, delays, nil
}

// rowArgMax returns the column index of the maximum entry in row i,
// breaking ties in favour of the lowest index
func rowArgMax(m *mat.Dense, i int) (int, error) {
	_, cols := m.Dims()
	if cols == 0 {
		return 0, fmt.Errorf("rowargmax: no action values given")
	}

	best := 0
	for j := 1; j < cols; j++ {
		if m.At(i, j) > m.At(i, best) {
			best = j
		}
	}
	return best, nil
}
