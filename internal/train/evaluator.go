package train

import (
	"errors"
	"io"

	"github.com/ChizhovVadim/vcgan/internal/dataset"
	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/report"
)

type forwarder interface {
	Forward(batch ml.Batch, sink report.Sink) (*Loss, error)
}

// Evaluator runs the forward pass over a finite iterator without touching parameters or
// optimizer state and reports the mean metrics under its name.
type Evaluator struct {
	name      string
	iterator  dataset.ResettableIterator
	converter dataset.Converter
	target    forwarder
}

func NewEvaluator(
	name string,
	iterator dataset.ResettableIterator,
	converter dataset.Converter,
	target forwarder,
) *Evaluator {
	return &Evaluator{
		name:      name,
		iterator:  iterator,
		converter: converter,
		target:    target,
	}
}

func (e *Evaluator) Name() string { return e.name }

func (e *Evaluator) Evaluate() (report.Observation, error) {
	e.iterator.Reset()
	var summary = report.NewSummary()
	for {
		examples, err := e.iterator.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batch, err := e.converter(examples)
		if err != nil {
			return nil, err
		}
		var observation = report.Observation{}
		_, err = e.target.Forward(batch, observation)
		if err != nil {
			return nil, err
		}
		summary.Add(observation)
	}
	return summary.Mean().Prefixed(e.name), nil
}
