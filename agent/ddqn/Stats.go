package ddqn

import "gonum.org/v1/gonum/mat"

// Statistics record labels distinguishing learned-policy episodes from
// fixed-program baseline episodes
const (
	LabelRL    = "RL"
	LabelFixed = "fixed"
)

// TruncatedMeanDelay is the sentinel mean delay reported for episodes
// truncated by the length cap instead of terminating naturally. A
// truncated episode's artifact understates the true delay, so no mean
// is computed for it.
const TruncatedMeanDelay = -1.0

// EpisodeStats summarizes one finished episode
type EpisodeStats struct {
	EpisodeID     int
	TotalReward   float64
	EpisodeLength int
	MeanDelay     float64
	Label         string
}

// EvalTransition is one step of an evaluation rollout: the full
// transition plus the online network's value estimates the action was
// chosen from.
type EvalTransition struct {
	It        int
	State     mat.Vector
	QValues   mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
}
