package tickdb

import "time"

// TickRecord is one row of the order_books table: a single price observation.
type TickRecord struct {
	ID uint `gorm:"primaryKey"`

	Code  string    `gorm:"type:text;not null;index:idx_order_books_code_time"`
	Time  time.Time `gorm:"not null;index:idx_order_books_code_time;index:idx_order_books_time"`
	Price float64   `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TickRecord) TableName() string {
	return "order_books"
}
