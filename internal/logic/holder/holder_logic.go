package holder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"holderscan/internal/logic/retry"
	"holderscan/internal/model"
	"holderscan/internal/progress"
	"holderscan/internal/svc"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	ErrUnknownChain    = svc.ErrUnknownChain
	ErrInvalidArgument = errors.New("invalid argument")
)

type HolderLogic struct {
	ctx      context.Context
	svcCtx   *svc.ServiceContext
	reporter progress.Reporter
	logx.Logger
}

func NewHolderLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HolderLogic {
	return &HolderLogic{
		ctx:      ctx,
		svcCtx:   svcCtx,
		reporter: progress.NewLogReporter(ctx, 10),
		Logger:   logx.WithContext(ctx),
	}
}

// WithProgress replaces the default log based progress reporter.
func (l *HolderLogic) WithProgress(reporter progress.Reporter) *HolderLogic {
	l.reporter = progress.OrNop(reporter)
	return l
}

// GetTokenHolders 计算代币在指定区块的持有人余额
func (l *HolderLogic) GetTokenHolders(req *types.TokenHoldersReq) (*types.TokenHoldersResp, error) {
	chain, err := l.svcCtx.Chain(req.Chain)
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(req.TokenAddress) {
		return nil, fmt.Errorf("%w: token address %q", ErrInvalidArgument, req.TokenAddress)
	}
	if strings.TrimSpace(req.TokenName) == "" {
		return nil, fmt.Errorf("%w: empty token name", ErrInvalidArgument)
	}
	minTokenAmount, err := parseAmount(req.MinTokenAmount)
	if err != nil {
		return nil, err
	}

	endBlock := req.BlockNumber
	if endBlock == 0 {
		endBlock, err = retry.Do(l.ctx, l.svcCtx.RetryPolicy, "eth_blockNumber", chain.Client.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("get latest block: %w", err)
		}
		l.Infof("using latest %s block %d", req.Chain, endBlock)
	}

	token := types.Token{
		Address:         common.HexToAddress(req.TokenAddress),
		Name:            req.TokenName,
		DeploymentBlock: req.DeploymentBlock,
	}
	scanner := NewScanner(chain.Fetcher, l.svcCtx.Store)
	holders, err := scanner.GetTokenHolders(l.ctx, token, endBlock, Options{
		MinTokenAmount: minTokenAmount,
		Network:        chain.Network,
		Progress:       l.reporter,
	})
	if err != nil {
		return nil, err
	}

	resp := &types.TokenHoldersResp{
		Chain:    req.Chain,
		EndBlock: endBlock,
		Holders:  make([]types.HolderBalance, 0, holders.Len()),
		Count:    holders.Len(),
	}
	holders.Range(func(holder common.Address, balance *big.Int) bool {
		resp.Holders = append(resp.Holders, types.HolderBalance{
			Address: holder.Hex(),
			Balance: balance.String(),
		})
		return true
	})

	if l.svcCtx.HolderBalancesDao != nil {
		resp.RunId = l.export(chain.Network, token, endBlock, resp.Holders)
	}
	return resp, nil
}

// export stores the result and returns its run id, or "" when the insert failed.
func (l *HolderLogic) export(network string, token types.Token, endBlock uint64, holders []types.HolderBalance) string {
	run := model.HolderRun{
		RunId:        uuid.NewString(),
		Network:      network,
		TokenAddress: token.Address.Hex(),
		TokenName:    token.Name,
		EndBlock:     endBlock,
	}
	if err := l.svcCtx.HolderBalancesDao.InsertBatch(l.ctx, model.NewHolderBalanceRows(run, holders)); err != nil {
		l.Errorf("export holders of %s: %v", token.Name, err)
		return ""
	}
	l.Infof("exported %d holders of %s as run %s", len(holders), token.Name, run.RunId)
	return run.RunId
}

func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: min token amount %q", ErrInvalidArgument, s)
	}
	return v, nil
}
