package ledger

import (
	"sort"

	"holderscan/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// HolderHistory maps every address seen in a transfer log to the transfers it
// took part in. Addresses iterate in order of first appearance.
type HolderHistory struct {
	order  []common.Address
	events map[common.Address][]types.TransferEvent
}

func NewHolderHistory() *HolderHistory {
	return &HolderHistory{
		events: make(map[common.Address][]types.TransferEvent),
	}
}

// Append adds event at the end of the history of holder, registering holder on first touch.
func (h *HolderHistory) Append(holder common.Address, event types.TransferEvent) {
	history, ok := h.events[holder]
	if !ok {
		h.order = append(h.order, holder)
	}
	h.events[holder] = append(history, event)
}

func (h *HolderHistory) Len() int {
	return len(h.order)
}

// Addresses returns the holders in order of first appearance.
func (h *HolderHistory) Addresses() []common.Address {
	return append([]common.Address(nil), h.order...)
}

func (h *HolderHistory) Events(holder common.Address) ([]types.TransferEvent, bool) {
	history, ok := h.events[holder]
	return history, ok
}

// Range calls fn for each holder in order until fn returns false.
func (h *HolderHistory) Range(fn func(holder common.Address, history []types.TransferEvent) bool) {
	for _, holder := range h.order {
		if !fn(holder, h.events[holder]) {
			return
		}
	}
}

// BuildHistory distributes every transfer to the history of its sender and of its
// receiver, then sorts each history by block. Transfers sharing a block keep the
// order they have in events.
func BuildHistory(events []types.TransferEvent) *HolderHistory {
	h := NewHolderHistory()
	for _, event := range events {
		h.Append(event.From, event)
		if event.To != event.From {
			h.Append(event.To, event)
		}
	}

	for _, history := range h.events {
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].BlockNumber < history[j].BlockNumber
		})
	}
	return h
}

// CropHistory returns a copy of h keeping only transfers at or before endBlock.
// Holders whose history becomes empty are kept.
func CropHistory(h *HolderHistory, endBlock uint64) *HolderHistory {
	cropped := &HolderHistory{
		order:  append([]common.Address(nil), h.order...),
		events: make(map[common.Address][]types.TransferEvent, len(h.events)),
	}
	for holder, history := range h.events {
		kept := make([]types.TransferEvent, 0, len(history))
		for _, event := range history {
			if event.BlockNumber <= endBlock {
				kept = append(kept, event)
			}
		}
		cropped.events[holder] = kept
	}
	return cropped
}
