package model

import (
	"context"

	"gorm.io/gorm"
)

var ErrNotFound = gorm.ErrRecordNotFound

const insertBatchSize = 500

// HolderBalancesDao defines the interface for database operations on the holder_balances table.
type HolderBalancesDao interface {
	InsertBatch(ctx context.Context, rows []*HolderBalances) error
	FindByRunId(ctx context.Context, runId string) ([]*HolderBalances, error)
}

type holderBalancesDao struct {
	db *gorm.DB
}

// NewHolderBalancesDao creates a new instance of HolderBalancesDao.
func NewHolderBalancesDao(db *gorm.DB) HolderBalancesDao {
	return &holderBalancesDao{
		db: db,
	}
}

// InsertBatch stores all rows of a run in a single transaction.
func (d *holderBalancesDao) InsertBatch(ctx context.Context, rows []*HolderBalances) error {
	if len(rows) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

// FindByRunId retrieves the rows of a run in insertion order.
func (d *holderBalancesDao) FindByRunId(ctx context.Context, runId string) ([]*HolderBalances, error) {
	var rows []*HolderBalances
	err := d.db.WithContext(ctx).Where("run_id = ?", runId).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}
