package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network. The layer's weights and bias live as value nodes in a
// single computational graph; a network that needs the same weights in
// another graph (e.g. at a different batch size) materializes a fresh
// fcLayer there from the canonical weight tensors.
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds a fully connected layer to graph g with the given
// weight and bias values. The bias parameter may be nil for a
// bias-free layer.
func newFCLayer(g *G.ExprGraph, weights, bias *tensor.Dense,
	act *Activation, name string) *fcLayer {
	layer := &fcLayer{
		weights: G.NewMatrix(
			g,
			tensor.Float64,
			G.WithName(name+"W"),
			G.WithValue(weights),
		),
		act: act,
	}
	if bias != nil {
		layer.bias = G.NewVector(
			g,
			tensor.Float64,
			G.WithName(name+"B"),
			G.WithValue(bias),
		)
	}
	return layer
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights: %v", err)
	}
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: could not add bias: %v", err)
		}
	}
	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

// learnables returns the layer's adjustable weight nodes
func (f *fcLayer) learnables() G.Nodes {
	if f.bias == nil {
		return G.Nodes{f.weights}
	}
	return G.Nodes{f.weights, f.bias}
}
