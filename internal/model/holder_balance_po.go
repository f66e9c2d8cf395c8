package model

import (
	"time"

	"holderscan/internal/types"
)

// HolderBalances corresponds to the holder_balances table in the database.
// One row per holder of a computed snapshot, grouped by RunId.
type HolderBalances struct {
	Id           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunId        string    `gorm:"column:run_id;type:uuid;index"`
	Network      string    `gorm:"column:network"`
	TokenAddress string    `gorm:"column:token_address;index"`
	TokenName    string    `gorm:"column:token_name"`
	EndBlock     uint64    `gorm:"column:end_block"`
	Holder       string    `gorm:"column:holder"`
	Balance      string    `gorm:"column:balance;type:numeric(78,0)"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (HolderBalances) TableName() string {
	return "holder_balances"
}

// HolderRun identifies one computed holder snapshot.
type HolderRun struct {
	RunId        string
	Network      string
	TokenAddress string
	TokenName    string
	EndBlock     uint64
}

// NewHolderBalanceRows 将计算结果转换为数据库行, 保持持有人顺序
func NewHolderBalanceRows(run HolderRun, holders []types.HolderBalance) []*HolderBalances {
	rows := make([]*HolderBalances, 0, len(holders))
	for _, h := range holders {
		rows = append(rows, &HolderBalances{
			RunId:        run.RunId,
			Network:      run.Network,
			TokenAddress: run.TokenAddress,
			TokenName:    run.TokenName,
			EndBlock:     run.EndBlock,
			Holder:       h.Address,
			Balance:      h.Balance,
		})
	}
	return rows
}
