// Package network implements the function approximators that estimate
// action values for states.
package network

import (
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/gotraffic/signalrl/solver"
)

// Loss identifies the regression loss a QNetwork is compiled with.
type Loss string

// Available losses
const (
	MSE Loss = "mse"
)

// QNetwork is a trainable function approximator mapping state vectors
// to per-action value estimates. Two QNetworks are structurally
// compatible when they agree on Features() and Outputs(); whole-model
// weight transfer between compatible networks is done with Weights()
// and SetWeights().
type QNetwork interface {
	// Predict computes the value estimates for a batch of states, one
	// state per input row. The returned matrix has one row per input
	// row and Outputs() columns.
	Predict(states *mat.Dense) (*mat.Dense, error)

	// Compile prepares the network for fitting with the given
	// optimizer and loss. Compile must be called before Fit. The
	// batchSize parameter fixes the number of rows Fit accepts.
	Compile(sol *solver.Solver, loss Loss, batchSize int) error

	// Fit regresses the network's predictions for x toward the target
	// values y for the given number of epochs, and returns the
	// final-epoch loss. Fit mutates the network weights.
	Fit(x, y *mat.Dense, batchSize, epochs int) (float64, error)

	// Features returns the length of state vectors the network accepts
	Features() int

	// Outputs returns the number of per-action value estimates the
	// network produces, which must equal the environment's discrete
	// action count
	Outputs() int

	// Weights returns a deep copy of the network's full weight set
	Weights() []*tensor.Dense

	// SetWeights overwrites the network's full weight set. Partial
	// weight transfer is not supported.
	SetWeights(weights []*tensor.Dense) error

	// Save writes the network's weights to the file at path
	Save(path string) error

	// LoadWeights restores the network's weights from the file at path
	LoadWeights(path string) error
}
