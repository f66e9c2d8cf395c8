package holder

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"holderscan/internal/cache"
	"holderscan/internal/logic/fetcher"
	"holderscan/internal/logic/ledger"
	"holderscan/internal/metrics"
	"holderscan/internal/progress"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"
)

var ErrInvalidRange = errors.New("end block precedes token deployment")

// Progress labels of the pipeline stages.
const (
	LabelComputeHistory  = "Compute holders history"
	LabelCropHistory     = "Crop holders history"
	LabelComputeBalances = "Compute holders balances"
	LabelFilterBalances  = "Filter holders balances"
	LabelDone            = "Done"
)

// EventFetcher fetches every transfer of asset in [startBlock, endBlock].
type EventFetcher interface {
	FetchEvents(ctx context.Context, asset common.Address, startBlock, endBlock uint64, reporter progress.Reporter) ([]types.TransferEvent, error)
}

type Options struct {
	// Holders must hold strictly more than this. nil means any positive balance.
	MinTokenAmount *big.Int
	// Cache namespace of the chain.
	Network string
	// Receives completion updates, may be nil.
	Progress progress.Reporter
}

// Scanner computes token holder balances from transfer events,
// reusing and extending the cached snapshot of the token.
type Scanner struct {
	fetcher EventFetcher
	store   cache.Store
}

func NewScanner(fetcher EventFetcher, store cache.Store) *Scanner {
	return &Scanner{
		fetcher: fetcher,
		store:   store,
	}
}

// GetTokenHolders returns the holders of token at endBlock, in first-appearance order.
func (s *Scanner) GetTokenHolders(ctx context.Context, token types.Token, endBlock uint64, opts Options) (*ledger.HolderBalances, error) {
	if endBlock < token.DeploymentBlock {
		return nil, fmt.Errorf("%w: end block %d, deployment block %d", ErrInvalidRange, endBlock, token.DeploymentBlock)
	}

	logger := logx.WithContext(ctx)
	reporter := progress.OrNop(opts.Progress)

	events, err := s.loadEvents(ctx, token, endBlock, opts.Network, progress.Scale(reporter, 0, 20))
	if err != nil {
		return nil, err
	}

	reporter.Update(20, LabelComputeHistory)
	history := ledger.BuildHistory(events)

	reporter.Update(40, LabelCropHistory)
	cropped := ledger.CropHistory(history, endBlock)

	reporter.Update(60, LabelComputeBalances)
	balances, err := ledger.ReplayBalances(cropped)
	if err != nil {
		return nil, err
	}

	reporter.Update(80, LabelFilterBalances)
	holders := ledger.FilterHolders(balances, opts.MinTokenAmount)

	reporter.Update(100, LabelDone)
	metrics.HoldersComputed.WithLabelValues(opts.Network, token.Name).Set(float64(holders.Len()))
	logger.Infof("%s on %s: %d holders at block %d (%d events, %d addresses)",
		token.Name, opts.Network, holders.Len(), endBlock, len(events), history.Len())
	return holders, nil
}

// loadEvents returns all transfers from deployment up to at least endBlock.
// A usable snapshot is extended from MaxBlock+1 only; a fresh snapshot is
// saved whenever something was fetched.
func (s *Scanner) loadEvents(ctx context.Context, token types.Token, endBlock uint64, network string, reporter progress.Reporter) ([]types.TransferEvent, error) {
	logger := logx.WithContext(ctx)

	result := "miss"
	snapshot, err := s.store.Load(ctx, network, token.Name)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Errorf("ignoring %s cache of %s: %v", network, token.Name, err)
			result = "unavailable"
		}
		snapshot = nil
	}

	if snapshot != nil && endBlock <= snapshot.MaxBlock {
		metrics.CacheLookups.WithLabelValues(network, "hit").Inc()
		reporter.Update(100, fetcher.StageLabel)
		return snapshot.Events, nil
	}

	var (
		cached    []types.TransferEvent
		fromBlock = token.DeploymentBlock
	)
	if snapshot != nil {
		cached = snapshot.Events
		fromBlock = max(snapshot.MaxBlock+1, token.DeploymentBlock)
		result = "extend"
		logger.Infof("extending %s cache of %s from block %d to %d", network, token.Name, fromBlock, endBlock)
	}
	metrics.CacheLookups.WithLabelValues(network, result).Inc()

	fetched, err := s.fetcher.FetchEvents(ctx, token.Address, fromBlock, endBlock, reporter)
	if err != nil {
		return nil, fmt.Errorf("fetch %s transfers [%d, %d]: %w", token.Name, fromBlock, endBlock, err)
	}

	events := make([]types.TransferEvent, 0, len(cached)+len(fetched))
	events = append(events, cached...)
	events = append(events, fetched...)

	if err := s.store.Save(ctx, network, token.Name, &cache.Snapshot{Events: events, MaxBlock: endBlock}); err != nil {
		logger.Errorf("save %s cache of %s: %v", network, token.Name, err)
	}
	return events, nil
}
