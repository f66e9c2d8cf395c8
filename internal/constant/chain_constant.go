package constant

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Chain string

const (
	ChainETH Chain = "ETH"
	ChainBSC Chain = "BSC"
)

// NetworkNames maps a configured chain to the network name used as cache namespace.
var NetworkNames = map[Chain]string{
	ChainETH: "ethereum",
	ChainBSC: "bsc",
}

// NetworkName returns the cache namespace for a chain, falling back to the lower-cased chain name.
func NetworkName(chain string) string {
	if name, ok := NetworkNames[Chain(chain)]; ok {
		return name
	}
	return strings.ToLower(chain)
}

// ZeroAddress is the mint/burn counterparty, never reported as a holder.
var ZeroAddress = common.Address{}

// TransferEventSignature Transfer(address,address,uint256)
var TransferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
