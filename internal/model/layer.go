package model

import (
	"fmt"
	"math/rand"

	"github.com/ChizhovVadim/vcgan/internal/ml"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Backward propagates the gradient of the output back through a recorded forward pass.
// Parameter gradients are accumulated only when accumulate is set; the gradient with
// respect to the differentiable input is always returned.
type Backward func(dy *ml.Tensor, accumulate bool) *ml.Tensor

// Layer is a pointwise (kernel size 1) convolution: the same linear map over channels
// is applied at every time step.
type Layer struct {
	name         string
	activationFn ml.IActivationFn
	weights      *ml.Param
	biases       *ml.Param
}

func NewLayer(
	name string,
	inputSize int,
	outputSize int,
	activationFn ml.IActivationFn,
) *Layer {
	return &Layer{
		name:         name,
		activationFn: activationFn,
		weights:      ml.NewParam(name+"/W", outputSize, inputSize),
		biases:       ml.NewParam(name+"/b", outputSize, 1),
	}
}

func (layer *Layer) InputSize() int {
	var _, c = layer.weights.Value.Dims()
	return c
}

func (layer *Layer) OutputSize() int {
	var r, _ = layer.weights.Value.Dims()
	return r
}

func (layer *Layer) InitWeightsReLU(rnd *rand.Rand) *Layer {
	var variance = 2.0 / float64(layer.InputSize())
	ml.InitUniform(rnd, layer.weights.Data(), variance)
	return layer
}

func (layer *Layer) InitWeightsSigmoid(rnd *rand.Rand) *Layer {
	var variance = 2.0 / float64(layer.InputSize()+layer.OutputSize())
	ml.InitUniform(rnd, layer.weights.Data(), variance)
	return layer
}

func (layer *Layer) InitIdentity() *Layer {
	var w = layer.weights.Value
	w.Zero()
	var r, c = w.Dims()
	for i := 0; i < r && i < c; i++ {
		w.Set(i, i, 1)
	}
	layer.biases.Value.Zero()
	return layer
}

func (layer *Layer) Params() []*ml.Param {
	return []*ml.Param{layer.weights, layer.biases}
}

func (layer *Layer) Forward(input *ml.Tensor) (*ml.Tensor, Backward, error) {
	if input.Channels != layer.InputSize() {
		return nil, nil, fmt.Errorf("%v: expected %v input channels, got %v",
			layer.name, layer.InputSize(), input.Channels)
	}
	var output = ml.NewTensor(input.Batch, layer.OutputSize(), input.Time)
	var prime = output.ZerosLike()
	var biases = layer.biases.Data()
	for b := 0; b < input.Batch && input.Time > 0; b++ {
		output.Matrix(b).Mul(layer.weights.Value, input.Matrix(b))
		var z = output.Item(b)
		var p = prime.Item(b)
		for c := range biases {
			for i := c * input.Time; i < (c+1)*input.Time; i++ {
				var x = z[i] + biases[c]
				z[i] = layer.activationFn.Sigma(x)
				p[i] = layer.activationFn.SigmaPrime(x)
			}
		}
	}
	var backward = func(dy *ml.Tensor, accumulate bool) *ml.Tensor {
		return layer.backward(input, prime, dy, accumulate)
	}
	return output, backward, nil
}

func (layer *Layer) backward(input, prime, dy *ml.Tensor, accumulate bool) *ml.Tensor {
	var dz = dy.Clone()
	floats.Mul(dz.Data, prime.Data)
	var dx = input.ZerosLike()
	if input.Time == 0 {
		return dx
	}
	var wGrad mat.Dense
	var bGrad = layer.biases.GradData()
	for b := 0; b < input.Batch; b++ {
		var dzb = dz.Matrix(b)
		if accumulate {
			wGrad.Mul(dzb, input.Matrix(b).T())
			layer.weights.Grad.Add(layer.weights.Grad, &wGrad)
			for c := range bGrad {
				bGrad[c] += floats.Sum(dzb.RawRowView(c))
			}
		}
		dx.Matrix(b).Mul(layer.weights.Value.T(), dzb)
	}
	return dx
}
