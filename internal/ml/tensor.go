package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense (batch, channels, time) array stored row-major.
type Tensor struct {
	Data     []float64
	Batch    int
	Channels int
	Time     int
}

// Batch is one converted training example set: all three tensors share batch and time sizes.
type Batch struct {
	Input  *Tensor
	Target *Tensor
	Mask   *Tensor
}

func NewTensor(batch, channels, time int) *Tensor {
	return &Tensor{
		Data:     make([]float64, batch*channels*time),
		Batch:    batch,
		Channels: channels,
		Time:     time,
	}
}

func NewTensorFrom(batch, channels, time int, data []float64) *Tensor {
	if len(data) != batch*channels*time {
		panic(fmt.Sprintf("ml: tensor data size %v does not match shape (%v, %v, %v)",
			len(data), batch, channels, time))
	}
	return &Tensor{
		Data:     data,
		Batch:    batch,
		Channels: channels,
		Time:     time,
	}
}

func (t *Tensor) index(b, c, i int) int {
	return (b*t.Channels+c)*t.Time + i
}

func (t *Tensor) Set(b, c, i int, v float64) {
	t.Data[t.index(b, c, i)] = v
}

// Item returns the channels x time block of one batch item, sharing storage.
func (t *Tensor) Item(b int) []float64 {
	var size = t.Channels * t.Time
	return t.Data[b*size : (b+1)*size]
}

// Matrix views one batch item as a channels x time gonum matrix. Empty items return nil.
func (t *Tensor) Matrix(b int) *mat.Dense {
	if t.Channels == 0 || t.Time == 0 {
		return nil
	}
	return mat.NewDense(t.Channels, t.Time, t.Item(b))
}

func (t *Tensor) Clone() *Tensor {
	var data = make([]float64, len(t.Data))
	copy(data, t.Data)
	return NewTensorFrom(t.Batch, t.Channels, t.Time, data)
}

func (t *Tensor) ZerosLike() *Tensor {
	return NewTensor(t.Batch, t.Channels, t.Time)
}

func (t *Tensor) SameShape(other *Tensor) bool {
	return t.Batch == other.Batch && t.Channels == other.Channels && t.Time == other.Time
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%v, %v, %v)", t.Batch, t.Channels, t.Time)
}

// ApplyMask multiplies x by mask element-wise. A single-channel mask is broadcast over channels.
func ApplyMask(x, mask *Tensor) (*Tensor, error) {
	if x.Batch != mask.Batch || x.Time != mask.Time ||
		(mask.Channels != 1 && mask.Channels != x.Channels) {
		return nil, fmt.Errorf("ml: mask %v is not broadcastable to %v", mask, x)
	}
	var result = x.Clone()
	if mask.Channels == x.Channels {
		floats.Mul(result.Data, mask.Data)
		return result, nil
	}
	for b := 0; b < x.Batch; b++ {
		var m = mask.Item(b)
		for c := 0; c < x.Channels; c++ {
			var row = result.Item(b)[c*x.Time : (c+1)*x.Time]
			floats.Mul(row, m)
		}
	}
	return result, nil
}

// ConcatChannels stacks a and b along the channel axis.
func ConcatChannels(a, b *Tensor) (*Tensor, error) {
	if a.Batch != b.Batch || a.Time != b.Time {
		return nil, fmt.Errorf("ml: cannot concat %v and %v", a, b)
	}
	var result = NewTensor(a.Batch, a.Channels+b.Channels, a.Time)
	for i := 0; i < a.Batch; i++ {
		var dst = result.Item(i)
		var n = copy(dst, a.Item(i))
		copy(dst[n:], b.Item(i))
	}
	return result, nil
}

// SplitChannels is the inverse of ConcatChannels: it returns channels [0, at) and [at, C).
func SplitChannels(x *Tensor, at int) (*Tensor, *Tensor) {
	var a = NewTensor(x.Batch, at, x.Time)
	var b = NewTensor(x.Batch, x.Channels-at, x.Time)
	for i := 0; i < x.Batch; i++ {
		var src = x.Item(i)
		var n = copy(a.Item(i), src)
		copy(b.Item(i), src[n:])
	}
	return a, b
}
