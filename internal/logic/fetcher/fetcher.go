package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"holderscan/internal/logic/retry"
	"holderscan/internal/metrics"
	"holderscan/internal/progress"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFetchSize uint64 = 10000
	DefaultBatchSize uint64 = 10
	// MaxBatchSize caps the requests in flight per wave.
	MaxBatchSize uint64 = 1024

	// StageLabel is reported alongside the fetch progress.
	StageLabel = "Get token events"
)

var ErrInvalidRange = errors.New("end block precedes start block")

// EventSource returns the transfer events of contract emitted in [fromBlock, toBlock].
type EventSource interface {
	FetchTransfers(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]types.TransferEvent, error)
}

// Options bounds the size and pace of the requests sent to the source.
type Options struct {
	// FetchSize is the block span of one request.
	FetchSize uint64
	// BatchSize is the number of requests issued concurrently in a wave.
	BatchSize uint64
	// WaitBetweenBatches is the pause between two waves.
	WaitBetweenBatches time.Duration
}

func DefaultOptions() Options {
	return Options{
		FetchSize: DefaultFetchSize,
		BatchSize: DefaultBatchSize,
	}
}

func (o Options) withDefaults() Options {
	if o.FetchSize == 0 {
		o.FetchSize = DefaultFetchSize
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	o.BatchSize = min(o.BatchSize, MaxBatchSize)
	if o.WaitBetweenBatches < 0 {
		o.WaitBetweenBatches = 0
	}
	return o
}

// BlockRange is an inclusive block interval.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Waves splits [start, end] into chunks of batchSize*fetchSize blocks, each chunk
// holding up to batchSize sub-ranges of fetchSize blocks. The last sub-range is
// clamped to end. batchSize is capped at MaxBatchSize.
func Waves(start, end, fetchSize, batchSize uint64) [][]BlockRange {
	if end < start || fetchSize == 0 || batchSize == 0 {
		return nil
	}
	batchSize = min(batchSize, MaxBatchSize)

	// saturate instead of wrapping: a step past MaxUint64 means a single chunk
	step := uint64(math.MaxUint64)
	if fetchSize <= math.MaxUint64/batchSize {
		step = fetchSize * batchSize
	}
	var waves [][]BlockRange
	for chunk := start; ; {
		wave := make([]BlockRange, 0, batchSize)
		for i := uint64(0); i < batchSize; i++ {
			from := chunk + i*fetchSize
			if from > end || from < chunk {
				break
			}
			to := from + fetchSize - 1
			if to > end || to < from {
				to = end
			}
			wave = append(wave, BlockRange{From: from, To: to})
			if to == end {
				break
			}
		}
		waves = append(waves, wave)

		next := chunk + step
		if next > end || next <= chunk {
			break
		}
		chunk = next
	}
	return waves
}

// Fetcher reads a block range from an EventSource in bounded concurrent waves.
type Fetcher struct {
	source EventSource
	policy retry.Policy
	opts   Options
}

func New(source EventSource, policy retry.Policy, opts Options) *Fetcher {
	return &Fetcher{
		source: source,
		policy: policy,
		opts:   opts.withDefaults(),
	}
}

// FetchEvents returns every transfer event of asset in [startBlock, endBlock], in block order.
// A sub-range that exhausts its retries fails the whole fetch.
func (f *Fetcher) FetchEvents(ctx context.Context, asset common.Address, startBlock, endBlock uint64, reporter progress.Reporter) ([]types.TransferEvent, error) {
	if endBlock < startBlock {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, startBlock, endBlock)
	}
	reporter = progress.OrNop(reporter)
	logger := logx.WithContext(ctx)

	waves := Waves(startBlock, endBlock, f.opts.FetchSize, f.opts.BatchSize)
	span := float64(endBlock - startBlock)

	var events []types.TransferEvent
	for i, wave := range waves {
		percent := 0.0
		if span > 0 {
			percent = float64(wave[0].From-startBlock) * 100 / span
		}
		reporter.Update(percent, StageLabel)
		logger.Debugf("fetching transfer events of %s from block %d to block %d over block %d",
			asset.Hex(), wave[0].From, wave[len(wave)-1].To, endBlock)

		results, err := f.fetchWave(ctx, asset, wave)
		if err != nil {
			metrics.FetcherErrors.Inc()
			return nil, err
		}
		for _, res := range results {
			events = append(events, res...)
		}
		metrics.FetcherWavesTotal.Inc()

		if i < len(waves)-1 && f.opts.WaitBetweenBatches > 0 {
			if err := sleep(ctx, f.opts.WaitBetweenBatches); err != nil {
				return nil, err
			}
		}
	}

	reporter.Update(100, StageLabel)
	return events, nil
}

// fetchWave issues every sub-range of wave concurrently. Results are stored by
// position so the concatenation follows issue order, not completion order.
func (f *Fetcher) fetchWave(ctx context.Context, asset common.Address, wave []BlockRange) ([][]types.TransferEvent, error) {
	results := make([][]types.TransferEvent, len(wave))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(f.opts.BatchSize))
	for i, r := range wave {
		g.Go(func() error {
			res, err := retry.Do(gCtx, f.policy, "fetch transfers "+r.String(), func(ctx context.Context) ([]types.TransferEvent, error) {
				return f.source.FetchTransfers(ctx, asset, r.From, r.To)
			})
			if err != nil {
				return fmt.Errorf("fetch blocks %s: %w", r, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
