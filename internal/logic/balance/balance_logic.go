package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"holderscan/internal/logic/fetcher"
	"holderscan/internal/svc"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/zeromicro/go-zero/core/logx"
)

var ErrInvalidAddress = errors.New("invalid address")

const etherDecimals = 18

type BalanceLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewBalanceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *BalanceLogic {
	return &BalanceLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// GetBalance 查询原生代币余额, 未指定区块时使用最新区块
func (l *BalanceLogic) GetBalance(req *types.BalanceReq) (*types.BalanceResp, error) {
	chain, err := l.svcCtx.Chain(req.Chain)
	if err != nil {
		return nil, err
	}

	if len(req.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no address given", ErrInvalidAddress)
	}
	addresses := make([]common.Address, 0, len(req.Addresses))
	for _, addr := range req.Addresses {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
		addresses = append(addresses, common.HexToAddress(addr))
	}

	var blockNumber *big.Int
	if req.BlockNumber > 0 {
		blockNumber = new(big.Int).SetUint64(req.BlockNumber)
	}

	fetchConf := l.svcCtx.Config.Fetch
	balances, err := fetcher.FetchInBatches(l.ctx, addresses,
		func(ctx context.Context, account common.Address) (*big.Int, error) {
			return chain.Client.BalanceAt(ctx, account, blockNumber)
		},
		l.svcCtx.RetryPolicy,
		int(min(fetchConf.BatchSize, fetcher.MaxBatchSize)),
		time.Duration(fetchConf.WaitBetweenBatches)*time.Millisecond,
	)
	if err != nil {
		return nil, fmt.Errorf("get %s balances: %w", req.Chain, err)
	}

	resp := &types.BalanceResp{
		Chain:    req.Chain,
		Balances: make([]types.NativeBalance, 0, len(addresses)),
	}
	for i, account := range addresses {
		resp.Balances = append(resp.Balances, types.NativeBalance{
			Address:   account.Hex(),
			Balance:   balances[i].String(),
			Formatted: FormatEther(balances[i]),
		})
	}
	l.Infof("fetched %d %s balances", len(resp.Balances), req.Chain)
	return resp, nil
}

// FormatEther renders a wei amount in ether units without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	abs := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(abs, big.NewInt(params.Ether), new(big.Int))

	out := whole.String()
	if frac.Sign() != 0 {
		digits := frac.String()
		digits = strings.Repeat("0", etherDecimals-len(digits)) + digits
		out += "." + strings.TrimRight(digits, "0")
	}
	if wei.Sign() < 0 {
		out = "-" + out
	}
	return out
}
