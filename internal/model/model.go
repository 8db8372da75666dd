package model

import (
	"fmt"
	"math/rand"

	"github.com/ChizhovVadim/vcgan/internal/ml"
)

const leakySlope = 0.2

type IPredictor interface {
	Params() []*ml.Param
	Forward(input *ml.Tensor) (*ml.Tensor, Backward, error)
}

// IDiscriminator scores (input, candidate) pairs with a per-time-step real/fake logit of
// shape (batch, 1, time'). Its Backward returns the gradient with respect to candidate.
type IDiscriminator interface {
	Params() []*ml.Param
	Forward(input, candidate *ml.Tensor) (*ml.Tensor, Backward, error)
}

type Topology struct {
	InChannels          int
	OutChannels         int
	PredictorHidden     int
	DiscriminatorHidden int
	Aligner             bool
}

type PredictorNet struct {
	layer1 *Layer
	layer2 *Layer
}

func NewPredictorNet(rnd *rand.Rand, inputSize, hiddenSize, outputSize int) *PredictorNet {
	return &PredictorNet{
		layer1: NewLayer("predictor/l1", inputSize, hiddenSize,
			&ml.LeakyReLuActivation{Slope: leakySlope}).
			InitWeightsReLU(rnd),
		layer2: NewLayer("predictor/l2", hiddenSize, outputSize,
			&ml.IdentityActivation{}).
			InitWeightsSigmoid(rnd),
	}
}

func (m *PredictorNet) Params() []*ml.Param {
	return append(m.layer1.Params(), m.layer2.Params()...)
}

func (m *PredictorNet) Forward(input *ml.Tensor) (*ml.Tensor, Backward, error) {
	hidden, back1, err := m.layer1.Forward(input)
	if err != nil {
		return nil, nil, err
	}
	output, back2, err := m.layer2.Forward(hidden)
	if err != nil {
		return nil, nil, err
	}
	var backward = func(dy *ml.Tensor, accumulate bool) *ml.Tensor {
		return back1(back2(dy, accumulate), accumulate)
	}
	return output, backward, nil
}

type DiscriminatorNet struct {
	inputSize int
	layer1    *Layer
	layer2    *Layer
}

func NewDiscriminatorNet(rnd *rand.Rand, inputSize, candidateSize, hiddenSize int) *DiscriminatorNet {
	return &DiscriminatorNet{
		inputSize: inputSize,
		layer1: NewLayer("discriminator/l1", inputSize+candidateSize, hiddenSize,
			&ml.LeakyReLuActivation{Slope: leakySlope}).
			InitWeightsReLU(rnd),
		layer2: NewLayer("discriminator/l2", hiddenSize, 1,
			&ml.IdentityActivation{}).
			InitWeightsSigmoid(rnd),
	}
}

func (m *DiscriminatorNet) Params() []*ml.Param {
	return append(m.layer1.Params(), m.layer2.Params()...)
}

func (m *DiscriminatorNet) Forward(input, candidate *ml.Tensor) (*ml.Tensor, Backward, error) {
	if input.Channels != m.inputSize {
		return nil, nil, fmt.Errorf("discriminator: expected %v input channels, got %v",
			m.inputSize, input.Channels)
	}
	pair, err := ml.ConcatChannels(input, candidate)
	if err != nil {
		return nil, nil, err
	}
	hidden, back1, err := m.layer1.Forward(pair)
	if err != nil {
		return nil, nil, err
	}
	score, back2, err := m.layer2.Forward(hidden)
	if err != nil {
		return nil, nil, err
	}
	var backward = func(dy *ml.Tensor, accumulate bool) *ml.Tensor {
		var dPair = back1(back2(dy, accumulate), accumulate)
		var _, dCandidate = ml.SplitChannels(dPair, m.inputSize)
		return dCandidate
	}
	return score, backward, nil
}

// AlignerNet is a pointwise identity-initialised map over input features.
// It is part of the trainable collection but the update core never steps it.
type AlignerNet struct {
	layer *Layer
}

func NewAlignerNet(size int) *AlignerNet {
	return &AlignerNet{
		layer: NewLayer("aligner", size, size, &ml.IdentityActivation{}).InitIdentity(),
	}
}

func (m *AlignerNet) Params() []*ml.Param {
	return m.layer.Params()
}

func (m *AlignerNet) Forward(input *ml.Tensor) (*ml.Tensor, Backward, error) {
	return m.layer.Forward(input)
}

func NewModels(rnd *rand.Rand, t Topology) *Models {
	var models = &Models{
		Predictor:     NewPredictorNet(rnd, t.InChannels, t.PredictorHidden, t.OutChannels),
		Discriminator: NewDiscriminatorNet(rnd, t.InChannels, t.OutChannels, t.DiscriminatorHidden),
	}
	if t.Aligner {
		models.Aligner = NewAlignerNet(t.InChannels)
	}
	return models
}
