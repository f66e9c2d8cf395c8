package source

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"holderscan/internal/constant"
	"holderscan/internal/metrics"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// LogFilterer is the part of ethclient.Client used to read event logs.
type LogFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]evmTypes.Log, error)
}

// EthSource reads ERC-20 Transfer events through eth_getLogs.
// Every call takes one token from a per-source token bucket.
type EthSource struct {
	client  LogFilterer
	network string
	limiter *rate.Limiter
}

// NewEthSource 创建事件源, rps <= 0 时不限速
func NewEthSource(client LogFilterer, network string, rps float64, burst int) *EthSource {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &EthSource{
		client:  client,
		network: network,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *EthSource) FetchTransfers(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]types.TransferEvent, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{constant.TransferEventSignature}},
	}

	start := time.Now()
	logs, err := s.client.FilterLogs(ctx, query)
	metrics.RPCLatency.WithLabelValues(s.network).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(s.network, "error").Inc()
		return nil, fmt.Errorf("eth_getLogs %s blocks %d-%d: %w", contract.Hex(), fromBlock, toBlock, err)
	}
	metrics.RPCCallsTotal.WithLabelValues(s.network, "ok").Inc()

	events := ParseTransferLogs(logs)
	metrics.TransfersFetched.WithLabelValues(s.network).Add(float64(len(events)))
	return events, nil
}

// wait blocks until the limiter grants a token or ctx is done.
// Reserve guarantees exactly one token is consumed per call.
func (s *EthSource) wait(ctx context.Context) error {
	r := s.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	metrics.RPCRateLimitWaits.WithLabelValues(s.network).Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
