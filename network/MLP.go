package network

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gotraffic/signalrl/solver"
)

// MLP implements QNetwork as a fully connected multi-layered
// perceptron. The canonical weight set is stored as plain tensors;
// computational graphs for prediction are materialized lazily per
// requested batch size and re-synced from the canonical weights
// whenever those change. A training graph with the regression loss is
// built once, at Compile time.
type MLP struct {
	features int
	outputs  int

	// Per-layer construction data. sizes includes the final linear
	// output layer.
	sizes       []int
	biases      []bool
	activations []*Activation

	// Canonical weight set, ordered layer-major with each layer's
	// weight matrix followed by its bias (when present)
	weights []*tensor.Dense

	predNets map[int]*forwardNet
	train    *trainNet
	solver   G.Solver
	loss     Loss
	fitBatch int
	compiled bool
}

// forwardNet is a prediction-only computational graph at a fixed batch
// size
type forwardNet struct {
	g          *G.ExprGraph
	input      *G.Node
	layers     []*fcLayer
	predVal    G.Value
	vm         G.VM
	batchSize  int
	stale      bool
}

// trainNet is a forwardNet extended with target values, a loss, and
// gradients for each learnable
type trainNet struct {
	forwardNet
	targets *G.Node
	lossVal G.Value
}

// NewMLP creates and returns a new MLP with len(hiddenSizes)+1 layers.
// A final linear layer with a bias unit is always added so that the
// network predicts outputs values for any input. For index i,
// hiddenSizes[i] is the number of nodes in hidden layer i, biases[i]
// is whether that layer has a bias unit, and activations[i] is its
// activation function. The init parameter determines the weight
// initialization scheme; biases are initialized to zero.
func NewMLP(features, outputs int, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn) (*MLP, error) {
	if features <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newmlp: features and outputs must be > 0")
	}
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlp: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newmlp: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(biases))
	}

	// Final linear layer so that the output heads are always predicted
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	biases = append(append([]bool{}, biases...), true)
	activations = append(append([]*Activation{}, activations...), Identity())

	m := &MLP{
		features:    features,
		outputs:     outputs,
		sizes:       sizes,
		biases:      biases,
		activations: activations,
		predNets:    make(map[int]*forwardNet),
	}

	// Initialize the canonical weight set
	in := features
	for i, out := range sizes {
		backing, ok := init(tensor.Float64, in, out).([]float64)
		if !ok {
			return nil, fmt.Errorf("newmlp: weight initializer did not " +
				"produce float64 weights")
		}
		m.weights = append(m.weights, tensor.New(
			tensor.WithShape(in, out),
			tensor.WithBacking(backing),
		))
		if biases[i] {
			m.weights = append(m.weights, tensor.New(
				tensor.WithShape(out),
				tensor.WithBacking(make([]float64, out)),
			))
		}
		in = out
	}

	return m, nil
}

// Features returns the length of state vectors the MLP accepts
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of per-action values the MLP predicts
func (m *MLP) Outputs() int {
	return m.outputs
}

// buildLayers materializes the MLP's layers in graph g from the
// canonical weight set
func (m *MLP) buildLayers(g *G.ExprGraph) []*fcLayer {
	layers := make([]*fcLayer, len(m.sizes))
	w := 0
	for i := range m.sizes {
		weights := m.weights[w].Clone().(*tensor.Dense)
		w++
		var bias *tensor.Dense
		if m.biases[i] {
			bias = m.weights[w].Clone().(*tensor.Dense)
			w++
		}
		layers[i] = newFCLayer(g, weights, bias, m.activations[i],
			fmt.Sprintf("L%d", i))
	}
	return layers
}

// syncLayers overwrites the weight values of layers with the canonical
// weight set
func (m *MLP) syncLayers(layers []*fcLayer) error {
	w := 0
	for _, layer := range layers {
		for _, node := range layer.learnables() {
			err := G.Let(node, m.weights[w].Clone().(*tensor.Dense))
			if err != nil {
				return fmt.Errorf("synclayers: could not set weights: %v", err)
			}
			w++
		}
	}
	return nil
}

// fwd chains the forward passes of layers over input
func fwd(layers []*fcLayer, input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, layer := range layers {
		if pred, err = layer.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass "+
				"of layer %v: %v", i, err)
		}
	}
	return pred, nil
}

// newForwardNet builds a prediction graph at the given batch size from
// the canonical weight set
func (m *MLP) newForwardNet(batchSize int) (*forwardNet, error) {
	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, m.features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	layers := m.buildLayers(g)
	pred, err := fwd(layers, input)
	if err != nil {
		return nil, err
	}

	net := &forwardNet{
		g:         g,
		input:     input,
		layers:    layers,
		batchSize: batchSize,
	}
	G.Read(pred, &net.predVal)
	net.vm = G.NewTapeMachine(g)

	return net, nil
}

// predNet returns the prediction graph for the given batch size,
// building it on first use
func (m *MLP) predNet(batchSize int) (*forwardNet, error) {
	if net, ok := m.predNets[batchSize]; ok {
		if net.stale {
			if err := m.syncLayers(net.layers); err != nil {
				return nil, err
			}
			net.stale = false
		}
		return net, nil
	}

	net, err := m.newForwardNet(batchSize)
	if err != nil {
		return nil, err
	}
	m.predNets[batchSize] = net
	return net, nil
}

// Predict computes the value estimates for a batch of states
func (m *MLP) Predict(states *mat.Dense) (*mat.Dense, error) {
	rows, cols := states.Dims()
	if cols != m.features {
		return nil, fmt.Errorf("predict: invalid number of features"+
			"\n\twant(%v)\n\thave(%v)", m.features, cols)
	}

	net, err := m.predNet(rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}

	if err := net.setInput(states); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	if err := net.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run forward pass: %v", err)
	}
	out := append([]float64{}, net.predVal.Data().([]float64)...)
	net.vm.Reset()

	return mat.NewDense(rows, m.outputs, out), nil
}

// setInput sets the value of the net's input node before running the
// forward pass
func (f *forwardNet) setInput(states *mat.Dense) error {
	rows, cols := states.Dims()
	backing := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		copy(backing[i*cols:(i+1)*cols], states.RawRowView(i))
	}
	return G.Let(f.input, tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(backing),
	))
}

// Compile prepares the MLP for fitting by building the training graph
// with the given optimizer and loss at a fixed batch size
func (m *MLP) Compile(sol *solver.Solver, loss Loss, batchSize int) error {
	if sol == nil || sol.Solver == nil {
		return fmt.Errorf("compile: no solver given")
	}
	if loss != MSE {
		return fmt.Errorf("compile: illegal loss %q", loss)
	}
	if batchSize < 1 {
		return fmt.Errorf("compile: batch size must be > 0")
	}

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, m.features),
		G.WithName("input"), G.WithInit(G.Zeroes()))
	targets := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, m.outputs),
		G.WithName("targets"), G.WithInit(G.Zeroes()))

	layers := m.buildLayers(g)
	pred, err := fwd(layers, input)
	if err != nil {
		return fmt.Errorf("compile: %v", err)
	}

	train := &trainNet{
		forwardNet: forwardNet{
			g:         g,
			input:     input,
			layers:    layers,
			batchSize: batchSize,
		},
		targets: targets,
	}
	G.Read(pred, &train.predVal)

	// Mean squared error over the full output rows
	losses := G.Must(G.Square(G.Must(G.Sub(pred, targets))))
	cost := G.Must(G.Mean(losses))
	G.Read(cost, &train.lossVal)

	learnables := train.learnables()
	if _, err := G.Grad(cost, learnables...); err != nil {
		return fmt.Errorf("compile: could not compute gradient: %v", err)
	}
	train.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))

	m.train = train
	m.solver = sol.Solver
	m.loss = loss
	m.fitBatch = batchSize
	m.compiled = true

	return nil
}

// learnables returns the net's adjustable weight nodes in canonical
// order
func (f *forwardNet) learnables() G.Nodes {
	var nodes G.Nodes
	for _, layer := range f.layers {
		nodes = append(nodes, layer.learnables()...)
	}
	return nodes
}

// model returns the net's learnables with their gradients
func (f *forwardNet) model() []G.ValueGrad {
	learnables := f.learnables()
	model := make([]G.ValueGrad, len(learnables))
	for i, node := range learnables {
		model[i] = node
	}
	return model
}

// Fit regresses the MLP's predictions for x toward y and returns the
// final-epoch loss
func (m *MLP) Fit(x, y *mat.Dense, batchSize, epochs int) (float64, error) {
	if !m.compiled {
		return 0, fmt.Errorf("fit: network is not compiled")
	}
	if batchSize != m.fitBatch {
		return 0, fmt.Errorf("fit: invalid batch size\n\twant(%v)"+
			"\n\thave(%v)", m.fitBatch, batchSize)
	}
	if xr, xc := x.Dims(); xr != batchSize || xc != m.features {
		return 0, fmt.Errorf("fit: invalid input shape\n\twant(%v x %v)"+
			"\n\thave(%v x %v)", batchSize, m.features, xr, xc)
	}
	if yr, yc := y.Dims(); yr != batchSize || yc != m.outputs {
		return 0, fmt.Errorf("fit: invalid target shape\n\twant(%v x %v)"+
			"\n\thave(%v x %v)", batchSize, m.outputs, yr, yc)
	}
	if epochs < 1 {
		return 0, fmt.Errorf("fit: epochs must be > 0")
	}

	if m.train.stale {
		if err := m.syncLayers(m.train.layers); err != nil {
			return 0, fmt.Errorf("fit: %v", err)
		}
		m.train.stale = false
	}

	if err := m.train.setInput(x); err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}
	if err := m.train.setTargets(y); err != nil {
		return 0, fmt.Errorf("fit: %v", err)
	}

	var loss float64
	for epoch := 0; epoch < epochs; epoch++ {
		if err := m.train.vm.RunAll(); err != nil {
			return 0, fmt.Errorf("fit: could not run training step: %v", err)
		}
		loss = m.train.lossVal.Data().(float64)
		if err := m.solver.Step(m.train.model()); err != nil {
			return 0, fmt.Errorf("fit: could not adapt weights: %v", err)
		}
		m.train.vm.Reset()
	}

	// The training graph now holds the newest weights; fold them back
	// into the canonical weight set and invalidate prediction graphs
	w := 0
	for _, node := range m.train.learnables() {
		m.weights[w] = node.Value().(*tensor.Dense).Clone().(*tensor.Dense)
		w++
	}
	for _, net := range m.predNets {
		net.stale = true
	}

	return loss, nil
}

// setTargets sets the value of the training net's target node
func (t *trainNet) setTargets(y *mat.Dense) error {
	rows, cols := y.Dims()
	backing := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		copy(backing[i*cols:(i+1)*cols], y.RawRowView(i))
	}
	return G.Let(t.targets, tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(backing),
	))
}

// Weights returns a deep copy of the MLP's full weight set
func (m *MLP) Weights() []*tensor.Dense {
	weights := make([]*tensor.Dense, len(m.weights))
	for i, w := range m.weights {
		weights[i] = w.Clone().(*tensor.Dense)
	}
	return weights
}

// SetWeights overwrites the MLP's full weight set
func (m *MLP) SetWeights(weights []*tensor.Dense) error {
	if len(weights) != len(m.weights) {
		return fmt.Errorf("setweights: invalid number of weight tensors"+
			"\n\twant(%v)\n\thave(%v)", len(m.weights), len(weights))
	}
	for i, w := range weights {
		if !w.Shape().Eq(m.weights[i].Shape()) {
			return fmt.Errorf("setweights: invalid shape for weight %v"+
				"\n\twant%v\n\thave%v", i, m.weights[i].Shape(), w.Shape())
		}
	}
	for i, w := range weights {
		m.weights[i] = w.Clone().(*tensor.Dense)
	}
	for _, net := range m.predNets {
		net.stale = true
	}
	if m.train != nil {
		m.train.stale = true
	}
	return nil
}

// Save writes the MLP's weights to the file at path
func (m *MLP) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(m.weights); err != nil {
		return fmt.Errorf("save: could not encode weights: %v", err)
	}
	return nil
}

// LoadWeights restores the MLP's weights from the file at path. The
// stored weights must structurally match the MLP.
func (m *MLP) LoadWeights(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("loadweights: could not open file: %v", err)
	}
	defer file.Close()

	var weights []*tensor.Dense
	if err := gob.NewDecoder(file).Decode(&weights); err != nil {
		return fmt.Errorf("loadweights: could not decode weights: %v", err)
	}
	if err := m.SetWeights(weights); err != nil {
		return fmt.Errorf("loadweights: %v", err)
	}
	return nil
}
