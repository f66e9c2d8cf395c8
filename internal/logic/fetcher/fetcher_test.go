package fetcher

import (
	"context"
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"holderscan/internal/logic/retry"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	asset   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	holderA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	holderB = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func fastPolicy() retry.Policy {
	return retry.Policy{Iterations: 3, Wait: time.Millisecond}
}

// rangeSource emits one event per requested range, at its first block.
type rangeSource struct {
	mu       sync.Mutex
	calls    []BlockRange
	failures map[uint64]int
	delay    func(from uint64) time.Duration
}

func (s *rangeSource) FetchTransfers(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]types.TransferEvent, error) {
	s.mu.Lock()
	s.calls = append(s.calls, BlockRange{From: fromBlock, To: toBlock})
	fail := s.failures[fromBlock] > 0
	if fail {
		s.failures[fromBlock]--
	}
	s.mu.Unlock()

	if s.delay != nil {
		time.Sleep(s.delay(fromBlock))
	}
	if fail {
		return nil, errors.New("503 service unavailable")
	}
	return []types.TransferEvent{{
		From:        holderA,
		To:          holderB,
		Value:       big.NewInt(int64(fromBlock)),
		BlockNumber: fromBlock,
	}}, nil
}

type progressRecorder struct {
	percents []float64
	labels   []string
}

func (p *progressRecorder) Update(percent float64, label string) {
	p.percents = append(p.percents, percent)
	p.labels = append(p.labels, label)
}

func TestWaves(t *testing.T) {
	testCases := []struct {
		name       string
		start, end uint64
		fetch      uint64
		batch      uint64
		expected   [][]BlockRange
	}{
		{
			name: "partial last wave", start: 0, end: 25, fetch: 10, batch: 2,
			expected: [][]BlockRange{
				{{0, 9}, {10, 19}},
				{{20, 25}},
			},
		},
		{
			name: "single block", start: 7, end: 7, fetch: 10, batch: 3,
			expected: [][]BlockRange{{{7, 7}}},
		},
		{
			name: "exact fit", start: 100, end: 139, fetch: 10, batch: 2,
			expected: [][]BlockRange{
				{{100, 109}, {110, 119}},
				{{120, 129}, {130, 139}},
			},
		},
		{
			name: "inverted", start: 10, end: 9, fetch: 10, batch: 2,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Waves(tc.start, tc.end, tc.fetch, tc.batch))
		})
	}
}

func TestWaves_CoversRangeWithoutOverlap(t *testing.T) {
	var next uint64 = 1234
	for _, wave := range Waves(1234, 98765, 1000, 7) {
		assert.LessOrEqual(t, len(wave), 7)
		for _, r := range wave {
			assert.Equal(t, next, r.From)
			assert.LessOrEqual(t, r.To-r.From, uint64(999))
			next = r.To + 1
		}
	}
	assert.Equal(t, uint64(98766), next)
}

func TestWaves_HugeSizesDoNotWrap(t *testing.T) {
	assert.Equal(t, [][]BlockRange{{{0, 100}}}, Waves(0, 100, math.MaxUint64/2, 4))
	assert.Equal(t, [][]BlockRange{{{5, 100}}}, Waves(5, 100, math.MaxUint64, math.MaxUint64))

	end := uint64(math.MaxUint64)
	waves := Waves(end-25, end, 10, 2)
	assert.Equal(t, [][]BlockRange{
		{{end - 25, end - 16}, {end - 15, end - 6}},
		{{end - 5, end}},
	}, waves)

	for _, wave := range Waves(0, 10_000, 1, math.MaxUint64) {
		assert.LessOrEqual(t, uint64(len(wave)), MaxBatchSize)
	}
}

func TestNew_ClampsBatchSize(t *testing.T) {
	src := &rangeSource{}
	f := New(src, fastPolicy(), Options{FetchSize: math.MaxUint64, BatchSize: 1 << 63})
	assert.Equal(t, MaxBatchSize, f.opts.BatchSize)

	events, err := f.FetchEvents(context.Background(), asset, 0, 50, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, []BlockRange{{From: 0, To: 50}}, src.calls)
}

func TestFetchEvents_OrderedDespiteCompletionOrder(t *testing.T) {
	src := &rangeSource{
		// later sub-ranges finish first
		delay: func(from uint64) time.Duration {
			return time.Duration(40-from%40) * time.Millisecond / 4
		},
	}
	f := New(src, fastPolicy(), Options{FetchSize: 10, BatchSize: 4})

	events, err := f.FetchEvents(context.Background(), asset, 0, 79, nil)
	require.NoError(t, err)
	require.Len(t, events, 8)

	for i, ev := range events {
		assert.Equal(t, uint64(i*10), ev.BlockNumber)
	}
}

func TestFetchEvents_RetriesTransientFailures(t *testing.T) {
	src := &rangeSource{failures: map[uint64]int{10: 2}}
	f := New(src, fastPolicy(), Options{FetchSize: 10, BatchSize: 2})

	events, err := f.FetchEvents(context.Background(), asset, 0, 19, nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Len(t, src.calls, 4)
}

func TestFetchEvents_FailsWholeFetchOnExhaustion(t *testing.T) {
	src := &rangeSource{failures: map[uint64]int{20: 10}}
	f := New(src, fastPolicy(), Options{FetchSize: 10, BatchSize: 2})

	events, err := f.FetchEvents(context.Background(), asset, 0, 39, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	assert.Nil(t, events)
}

func TestFetchEvents_InvalidRange(t *testing.T) {
	f := New(&rangeSource{}, fastPolicy(), DefaultOptions())

	_, err := f.FetchEvents(context.Background(), asset, 10, 9, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFetchEvents_ReportsProgressByBlocks(t *testing.T) {
	src := &rangeSource{}
	f := New(src, fastPolicy(), Options{FetchSize: 10, BatchSize: 2})
	rec := &progressRecorder{}

	_, err := f.FetchEvents(context.Background(), asset, 0, 80, rec)
	require.NoError(t, err)

	// waves start at 0, 20, 40, 60, 80
	assert.Equal(t, []float64{0, 25, 50, 75, 100, 100}, rec.percents)
	for _, label := range rec.labels {
		assert.Equal(t, StageLabel, label)
	}
}

func TestFetchEvents_SingleBlockProgress(t *testing.T) {
	rec := &progressRecorder{}
	f := New(&rangeSource{}, fastPolicy(), DefaultOptions())

	events, err := f.FetchEvents(context.Background(), asset, 5, 5, rec)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, []float64{0, 100}, rec.percents)
}

func TestFetchEvents_WaitsBetweenBatches(t *testing.T) {
	f := New(&rangeSource{}, fastPolicy(), Options{FetchSize: 10, BatchSize: 1, WaitBetweenBatches: 15 * time.Millisecond})

	start := time.Now()
	_, err := f.FetchEvents(context.Background(), asset, 0, 29, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchTransfers(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]types.TransferEvent, error) {
	args := m.Called(ctx, contract, fromBlock, toBlock)
	events, _ := args.Get(0).([]types.TransferEvent)
	return events, args.Error(1)
}

func TestFetchEvents_RequestsExpectedRanges(t *testing.T) {
	src := &mockSource{}
	src.On("FetchTransfers", mock.Anything, asset, uint64(100), uint64(104)).Return([]types.TransferEvent{}, nil).Once()
	src.On("FetchTransfers", mock.Anything, asset, uint64(105), uint64(109)).Return([]types.TransferEvent{}, nil).Once()
	src.On("FetchTransfers", mock.Anything, asset, uint64(110), uint64(112)).Return([]types.TransferEvent{}, nil).Once()

	f := New(src, fastPolicy(), Options{FetchSize: 5, BatchSize: 2})
	events, err := f.FetchEvents(context.Background(), asset, 100, 112, nil)

	require.NoError(t, err)
	assert.Empty(t, events)
	src.AssertExpectations(t)
}

func TestFetchInBatches(t *testing.T) {
	var mu sync.Mutex
	attempts := map[int]int{}

	items := []int{1, 2, 3, 4, 5}
	res, err := FetchInBatches(context.Background(), items, func(ctx context.Context, item int) (int, error) {
		mu.Lock()
		attempts[item]++
		n := attempts[item]
		mu.Unlock()
		if item == 3 && n == 1 {
			return 0, errors.New("timeout")
		}
		return item * item, nil
	}, fastPolicy(), 2, 0)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, res)
	assert.Equal(t, 2, attempts[3])
}

func TestFetchInBatches_PropagatesFailure(t *testing.T) {
	_, err := FetchInBatches(context.Background(), []string{"a", "b"}, func(ctx context.Context, item string) (string, error) {
		if item == "b" {
			return "", errors.New("down")
		}
		return item, nil
	}, fastPolicy(), 10, 0)

	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
}
