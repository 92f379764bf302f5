package simulation

import (
	"context"
	"strconv"
	"sync"

	"github.com/okian/seasonsim/pkg/logger"
)

// Default pool configuration constants.
const (
	defaultBatchSize = 250 // trials per job
)

// batch is a contiguous range of trial numbers [from, to).
type batch struct {
	from, to int
}

// pool shards trials across workers. Each worker owns its scratch space
// and tally; the tallies are merged once every worker has drained the
// batch queue.
type pool struct {
	workers   int
	batchSize int
	logger    logger.Logger
}

func newPool(workers, batchSize int, l logger.Logger) *pool {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &pool{workers: workers, batchSize: batchSize, logger: l}
}

// run plays trials [0, trials) and returns the merged tally.
func (p *pool) run(ctx context.Context, s *slate, trials int) (*tally, error) {
	batches := make(chan batch)
	workers := min(p.workers, (trials+p.batchSize-1)/p.batchSize)
	tallies := make([]*tally, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		tallies[w] = newTally(len(s.teams), s.maxWins)
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			p.work(ctx, "worker-"+strconv.Itoa(w), s, batches, tallies[w])
		}(w)
	}

	var err error
enqueue:
	for from := 0; from < trials; from += p.batchSize {
		select {
		case batches <- batch{from: from, to: min(from+p.batchSize, trials)}:
		case <-ctx.Done():
			err = ctx.Err()
			break enqueue
		}
	}
	close(batches)
	wg.Wait()
	// Workers skip batches once ctx is done, even after the last hand-off.
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	total := tallies[0]
	for _, t := range tallies[1:] {
		total.merge(t)
	}
	return total, nil
}

func (p *pool) work(ctx context.Context, name string, s *slate, batches <-chan batch, t *tally) {
	sc := newScratch(len(s.teams))
	done := 0
	for b := range batches {
		if ctx.Err() != nil {
			continue // drain so the producer is not blocked
		}
		for trial := b.from; trial < b.to; trial++ {
			s.trial(trial, sc)
			t.add(sc)
		}
		done += b.to - b.from
	}
	p.logger.Debug(ctx, "worker finished", logger.String("worker", name), logger.Int("trials", done))
}
