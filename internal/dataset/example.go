package dataset

import (
	"errors"
	"fmt"

	"github.com/ChizhovVadim/vcgan/internal/ml"
)

var ErrEmptyBatch = errors.New("dataset: empty batch")

// Example is one aligned source/target pair. Each field is channels x length.
type Example struct {
	Input  [][]float64 `json:"input"`
	Target [][]float64 `json:"target"`
	Mask   [][]float64 `json:"mask,omitempty"`
}

func (e *Example) Length() int {
	if len(e.Input) == 0 {
		return 0
	}
	return len(e.Input[0])
}

func (e *Example) validate() error {
	var n = e.Length()
	if len(e.Input) == 0 || len(e.Target) == 0 {
		return fmt.Errorf("dataset: example without input or target")
	}
	for _, rows := range [][][]float64{e.Input, e.Target, e.Mask} {
		for _, row := range rows {
			if len(row) != n {
				return fmt.Errorf("dataset: ragged example, expected length %v, got %v", n, len(row))
			}
		}
	}
	if len(e.Mask) > 1 && len(e.Mask) != len(e.Target) {
		return fmt.Errorf("dataset: mask has %v channels, target has %v", len(e.Mask), len(e.Target))
	}
	return nil
}

// Converter maps a list of examples to padded tensors.
type Converter func(examples []Example) (ml.Batch, error)

// Concat stacks examples into (batch, channels, time) tensors, zero-padding every sequence
// to the longest one. A missing mask is all ones over the true length.
func Concat(examples []Example) (ml.Batch, error) {
	if len(examples) == 0 {
		return ml.Batch{}, ErrEmptyBatch
	}
	var first = &examples[0]
	var inChannels = len(first.Input)
	var outChannels = len(first.Target)
	var maskChannels = len(first.Mask)
	if maskChannels == 0 {
		maskChannels = 1
	}
	var maxLen int
	for i := range examples {
		var e = &examples[i]
		var err = e.validate()
		if err != nil {
			return ml.Batch{}, err
		}
		var mc = len(e.Mask)
		if mc == 0 {
			mc = 1
		}
		if len(e.Input) != inChannels || len(e.Target) != outChannels || mc != maskChannels {
			return ml.Batch{}, fmt.Errorf("dataset: example %v has a different channel layout", i)
		}
		if e.Length() > maxLen {
			maxLen = e.Length()
		}
	}

	var batch = ml.Batch{
		Input:  ml.NewTensor(len(examples), inChannels, maxLen),
		Target: ml.NewTensor(len(examples), outChannels, maxLen),
		Mask:   ml.NewTensor(len(examples), maskChannels, maxLen),
	}
	for b := range examples {
		var e = &examples[b]
		copyRows(batch.Input, b, e.Input)
		copyRows(batch.Target, b, e.Target)
		if len(e.Mask) == 0 {
			for i := 0; i < e.Length(); i++ {
				batch.Mask.Set(b, 0, i, 1)
			}
		} else {
			copyRows(batch.Mask, b, e.Mask)
		}
	}
	return batch, nil
}

func copyRows(dst *ml.Tensor, b int, rows [][]float64) {
	var item = dst.Item(b)
	for c, row := range rows {
		copy(item[c*dst.Time:], row)
	}
}
