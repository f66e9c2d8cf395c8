package source

import (
	"math/big"

	"holderscan/internal/constant"
	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
)

// ParseTransferLog 解析 ERC-20 Transfer 日志
// ERC-721 transfers share the signature but index the token id (4 topics, empty data)
// and are rejected, as are logs dropped by a reorg.
func ParseTransferLog(vLog *evmTypes.Log) (types.TransferEvent, bool) {
	if vLog == nil || vLog.Removed {
		return types.TransferEvent{}, false
	}
	if len(vLog.Topics) != 3 || vLog.Topics[0] != constant.TransferEventSignature || len(vLog.Data) != 32 {
		return types.TransferEvent{}, false
	}

	return types.TransferEvent{
		From:        common.BytesToAddress(vLog.Topics[1].Bytes()),
		To:          common.BytesToAddress(vLog.Topics[2].Bytes()),
		Value:       new(big.Int).SetBytes(vLog.Data),
		BlockNumber: vLog.BlockNumber,
	}, true
}

// ParseTransferLogs keeps the decodable transfers of logs, in log order.
func ParseTransferLogs(logs []evmTypes.Log) []types.TransferEvent {
	events := make([]types.TransferEvent, 0, len(logs))
	for i := range logs {
		if event, ok := ParseTransferLog(&logs[i]); ok {
			events = append(events, event)
		}
	}
	return events
}
