package balance

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"holderscan/internal/config"
	"holderscan/internal/logic/retry"
	"holderscan/internal/svc"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type balanceClient struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	blocks   []*big.Int
	failures int
}

func (c *balanceClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]evmTypes.Log, error) {
	return nil, nil
}

func (c *balanceClient) BlockNumber(context.Context) (uint64, error) { return 0, nil }

func (c *balanceClient) BalanceAt(_ context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, blockNumber)
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("502 bad gateway")
	}
	if v, ok := c.balances[account]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

var (
	rich = common.HexToAddress("0x1111111111111111111111111111111111111111")
	poor = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestLogic(t *testing.T, client *balanceClient) *BalanceLogic {
	t.Helper()
	svcCtx := &svc.ServiceContext{RetryPolicy: retry.Policy{Iterations: 3}}
	svcCtx.Config.Fetch = config.FetchConf{BatchSize: 1}
	svcCtx.AddChain("BSC", config.ChainConf{}, client)
	return NewBalanceLogic(context.Background(), svcCtx)
}

func TestBalanceLogic_GetBalance(t *testing.T) {
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)
	client := &balanceClient{balances: map[common.Address]*big.Int{rich: oneAndHalf}, failures: 1}

	resp, err := newTestLogic(t, client).GetBalance(&types.BalanceReq{
		Chain:       "BSC",
		Addresses:   []string{rich.Hex(), poor.Hex()},
		BlockNumber: 123,
	})
	require.NoError(t, err)
	assert.Equal(t, "BSC", resp.Chain)
	assert.Equal(t, []types.NativeBalance{
		{Address: rich.Hex(), Balance: "1500000000000000000", Formatted: "1.5"},
		{Address: poor.Hex(), Balance: "0", Formatted: "0"},
	}, resp.Balances)

	// one retried call plus one per address
	require.Len(t, client.blocks, 3)
	for _, block := range client.blocks {
		assert.Equal(t, int64(123), block.Int64())
	}
}

func TestBalanceLogic_LatestBlockWhenUnset(t *testing.T) {
	client := &balanceClient{}
	_, err := newTestLogic(t, client).GetBalance(&types.BalanceReq{Chain: "BSC", Addresses: []string{rich.Hex()}})
	require.NoError(t, err)
	require.Len(t, client.blocks, 1)
	assert.Nil(t, client.blocks[0])
}

func TestBalanceLogic_Rejects(t *testing.T) {
	l := newTestLogic(t, &balanceClient{})

	_, err := l.GetBalance(&types.BalanceReq{Chain: "BSC", Addresses: []string{"not-an-address"}})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = l.GetBalance(&types.BalanceReq{Chain: "BSC"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = l.GetBalance(&types.BalanceReq{Chain: "ETH", Addresses: []string{rich.Hex()}})
	assert.ErrorIs(t, err, svc.ErrUnknownChain)
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1", "0.000000000000000001"},
		{"1000000000000000000", "1"},
		{"1230000000000000000", "1.23"},
		{"-2500000000000000000", "-2.5"},
		{"123456789012345678901234567890", "123456789012.34567890123456789"},
	}
	for _, tt := range tests {
		wei, ok := new(big.Int).SetString(tt.wei, 10)
		require.True(t, ok)
		assert.Equal(t, tt.want, FormatEther(wei), tt.wei)
	}
	assert.Equal(t, "0", FormatEther(nil))
}
