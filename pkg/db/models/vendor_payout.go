package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorPayout is a periodic aggregation of a vendor's completed sales into a
// payable amount. Payout execution and reconciliation are out of scope; only
// the bookkeeping record exists.
type VendorPayout struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	PeriodStart time.Time       `gorm:"column:period_start;not null"`
	PeriodEnd   time.Time       `gorm:"column:period_end;not null"`
	OrderCount  int             `gorm:"column:order_count;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
