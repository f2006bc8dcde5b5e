package tickdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize is used by InsertTicks when batchSize <= 0.
const DefaultBatchSize = 500

// InsertTicks writes records in batches. Records whose ID already exists are
// skipped. It returns the number of rows actually inserted.
func (c *Client) InsertTicks(ctx context.Context, records []TickRecord, batchSize int) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	tx := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		CreateInBatches(records, batchSize)
	if tx.Error != nil {
		return 0, fmt.Errorf("insert ticks: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

func (c *Client) CountTicks(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.WithContext(ctx).Model(&TickRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return n, nil
}

// DeleteTicksBefore removes ticks older than before and returns how many were deleted.
func (c *Client) DeleteTicksBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := c.DB.WithContext(ctx).
		Where(clause.Lt{Column: clause.Column{Name: "time"}, Value: before}).
		Delete(&TickRecord{})
	if tx.Error != nil {
		return 0, fmt.Errorf("delete ticks: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// TickCursor streams the tick table without loading it into memory.
type TickCursor struct {
	db   *gorm.DB
	rows *sql.Rows
}

// Cursor opens a cursor over all ticks ordered by time, then id, so ties keep
// insertion order.
func (c *Client) Cursor(ctx context.Context) (*TickCursor, error) {
	db := c.DB.WithContext(ctx)
	rows, err := db.Model(&TickRecord{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Rows()
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	return &TickCursor{db: db, rows: rows}, nil
}

// Next scans the next row into rec. It returns false once the rows are
// exhausted; a non-nil error means the cursor is broken.
func (tc *TickCursor) Next(rec *TickRecord) (bool, error) {
	if !tc.rows.Next() {
		return false, tc.rows.Err()
	}
	*rec = TickRecord{}
	if err := tc.db.ScanRows(tc.rows, rec); err != nil {
		return false, fmt.Errorf("scan tick: %w", err)
	}
	return true, nil
}

func (tc *TickCursor) Close() error {
	return tc.rows.Close()
}
