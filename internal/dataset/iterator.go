package dataset

import (
	"context"
	"io"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Iterator yields batches of examples. Finite iterators return io.EOF when exhausted.
type Iterator interface {
	Next() ([]Example, error)
	Epoch() int
	EpochDetail() float64
}

type ResettableIterator interface {
	Iterator
	Reset()
}

// SerialIterator walks a dataset in (optionally shuffled) order.
// With repeat it cycles forever, reshuffling at every epoch boundary and filling a batch
// across the boundary. Without repeat the last batch may be short and the next call returns io.EOF.
type SerialIterator struct {
	dataset   []Example
	batchSize int
	repeat    bool
	shuffle   bool
	rnd       *rand.Rand
	order     []int
	position  int
	epoch     int
}

func NewSerialIterator(dataset []Example, batchSize int, repeat, shuffle bool, seed int64) *SerialIterator {
	var it = &SerialIterator{
		dataset:   dataset,
		batchSize: batchSize,
		repeat:    repeat,
		shuffle:   shuffle,
		rnd:       rand.New(rand.NewSource(seed)),
		order:     make([]int, len(dataset)),
	}
	it.Reset()
	return it
}

func (it *SerialIterator) Reset() {
	for i := range it.order {
		it.order[i] = i
	}
	if it.shuffle {
		it.shuffleOrder()
	}
	it.position = 0
	it.epoch = 0
}

func (it *SerialIterator) shuffleOrder() {
	it.rnd.Shuffle(len(it.order), func(i, j int) {
		it.order[i], it.order[j] = it.order[j], it.order[i]
	})
}

func (it *SerialIterator) Next() ([]Example, error) {
	var n = len(it.dataset)
	if n == 0 {
		if it.repeat {
			return nil, ErrEmptyBatch
		}
		return nil, io.EOF
	}
	if !it.repeat && it.epoch > 0 {
		return nil, io.EOF
	}
	var batch = make([]Example, 0, it.batchSize)
	for len(batch) < it.batchSize {
		batch = append(batch, it.dataset[it.order[it.position]])
		it.position++
		if it.position == n {
			it.position = 0
			it.epoch++
			if !it.repeat {
				break
			}
			if it.shuffle {
				it.shuffleOrder()
			}
		}
	}
	return batch, nil
}

func (it *SerialIterator) Epoch() int { return it.epoch }

func (it *SerialIterator) EpochDetail() float64 {
	if len(it.dataset) == 0 {
		return float64(it.epoch)
	}
	return float64(it.epoch) + float64(it.position)/float64(len(it.dataset))
}

type prefetched struct {
	batch       []Example
	epoch       int
	epochDetail float64
	err         error
}

// Prefetcher reads batches from an inner iterator in a background goroutine, keeping up to
// buffer batches ready. Batch order is preserved.
type Prefetcher struct {
	ctx         context.Context
	items       chan prefetched
	cancel      context.CancelFunc
	g           *errgroup.Group
	mu          sync.Mutex
	epoch       int
	epochDetail float64
	err         error
}

func Prefetch(ctx context.Context, inner Iterator, buffer int) *Prefetcher {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	var p = &Prefetcher{
		ctx:    ctx,
		items:  make(chan prefetched, buffer),
		cancel: cancel,
		g:      g,
	}
	g.Go(func() error {
		defer close(p.items)
		for {
			batch, err := inner.Next()
			var item = prefetched{
				batch:       batch,
				epoch:       inner.Epoch(),
				epochDetail: inner.EpochDetail(),
				err:         err,
			}
			select {
			case <-ctx.Done():
				return nil
			case p.items <- item:
			}
			if err != nil {
				return nil
			}
		}
	})
	return p
}

// Next blocks until a prefetched batch is ready. Once the context is cancelled and the
// buffer is drained it returns the context error.
func (p *Prefetcher) Next() ([]Example, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	item, ok := <-p.items
	if !ok {
		p.err = p.ctx.Err()
		if p.err == nil {
			p.err = io.ErrClosedPipe
		}
		return nil, p.err
	}
	if item.err != nil {
		p.err = item.err
		return nil, p.err
	}
	p.epoch = item.epoch
	p.epochDetail = item.epochDetail
	return item.batch, nil
}

func (p *Prefetcher) Epoch() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

func (p *Prefetcher) EpochDetail() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epochDetail
}

// Close stops the background reader and waits for it.
func (p *Prefetcher) Close() error {
	p.cancel()
	return p.g.Wait()
}
