package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferEvent is one value movement decoded from a Transfer(address,address,uint256) log.
// Events are never mutated once fetched.
type TransferEvent struct {
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Value       *big.Int       `json:"value"` // uint256 range
	BlockNumber uint64         `json:"blockNumber"`
}

// Token identifies the scanned asset and the first block of its event history.
type Token struct {
	Address         common.Address `json:"address"`
	Name            string         `json:"name"`
	DeploymentBlock uint64         `json:"deploymentBlock"`
}
