package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInconsistentLedger means a history holds a transfer its holder is not part of.
var ErrInconsistentLedger = errors.New("inconsistent ledger")

// HolderBalances is an insertion-ordered map of signed balances.
type HolderBalances struct {
	order  []common.Address
	values map[common.Address]*big.Int
}

func NewHolderBalances() *HolderBalances {
	return &HolderBalances{
		values: make(map[common.Address]*big.Int),
	}
}

// Set stores balance for holder. An existing holder keeps its position.
func (b *HolderBalances) Set(holder common.Address, balance *big.Int) {
	if _, ok := b.values[holder]; !ok {
		b.order = append(b.order, holder)
	}
	b.values[holder] = balance
}

func (b *HolderBalances) Get(holder common.Address) (*big.Int, bool) {
	balance, ok := b.values[holder]
	return balance, ok
}

func (b *HolderBalances) Len() int {
	return len(b.order)
}

// Addresses returns the holders in insertion order.
func (b *HolderBalances) Addresses() []common.Address {
	return append([]common.Address(nil), b.order...)
}

// Range calls fn for each holder in insertion order until fn returns false.
func (b *HolderBalances) Range(fn func(holder common.Address, balance *big.Int) bool) {
	for _, holder := range b.order {
		if !fn(holder, b.values[holder]) {
			return
		}
	}
}

// Total is the sum of every balance.
func (b *HolderBalances) Total() *big.Int {
	total := new(big.Int)
	for _, balance := range b.values {
		total.Add(total, balance)
	}
	return total
}

// ReplayBalances folds each history into a net balance: received minus sent.
func ReplayBalances(h *HolderHistory) (*HolderBalances, error) {
	balances := NewHolderBalances()

	var err error
	h.Range(func(holder common.Address, history []types.TransferEvent) bool {
		balance := new(big.Int)
		for _, event := range history {
			related := false
			if event.To == holder {
				balance.Add(balance, valueOf(event))
				related = true
			}
			if event.From == holder {
				balance.Sub(balance, valueOf(event))
				related = true
			}
			if !related {
				err = fmt.Errorf("%w: transfer %s -> %s at block %d is not related to holder %s",
					ErrInconsistentLedger, event.From.Hex(), event.To.Hex(), event.BlockNumber, holder.Hex())
				return false
			}
		}
		balances.Set(holder, balance)
		return true
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func valueOf(event types.TransferEvent) *big.Int {
	if event.Value == nil {
		return new(big.Int)
	}
	return event.Value
}
