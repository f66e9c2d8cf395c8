package ledger

import (
	"math/big"

	"holderscan/internal/constant"

	"github.com/ethereum/go-ethereum/common"
)

// FilterHolders keeps holders whose balance is above zero and above minTokenAmount.
// The zero address is always dropped. A nil minTokenAmount means zero.
func FilterHolders(balances *HolderBalances, minTokenAmount *big.Int) *HolderBalances {
	if minTokenAmount == nil {
		minTokenAmount = new(big.Int)
	}

	filtered := NewHolderBalances()
	balances.Range(func(holder common.Address, balance *big.Int) bool {
		if holder == constant.ZeroAddress {
			return true
		}
		if balance.Sign() > 0 && balance.Cmp(minTokenAmount) > 0 {
			filtered.Set(holder, balance)
		}
		return true
	})
	return filtered
}

// MergeBalances returns the union of a and b. On collision the value of b wins
// and the holder keeps its position from a.
func MergeBalances(a, b *HolderBalances) *HolderBalances {
	merged := NewHolderBalances()
	for _, src := range []*HolderBalances{a, b} {
		if src == nil {
			continue
		}
		src.Range(func(holder common.Address, balance *big.Int) bool {
			merged.Set(holder, balance)
			return true
		})
	}
	return merged
}
