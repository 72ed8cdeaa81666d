package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

// SalesSummary aggregates a vendor's completed sales over a period.
type SalesSummary struct {
	VendorID    uuid.UUID       `json:"vendor_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	OrderCount  int             `json:"order_count"`
	ItemCount   int             `json:"item_count"`
	Gross       decimal.Decimal `json:"gross"`
}

// Service computes vendor payout summaries from settled order lines.
type Service interface {
	SalesSummary(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*SalesSummary, error)
	RecordPayout(ctx context.Context, summary *SalesSummary) (*models.VendorPayout, error)
}

type service struct {
	db   *db.Client
	logg *logger.Logger
}

// NewService builds the payout aggregation service.
func NewService(dbClient *db.Client, logg *logger.Logger) Service {
	return &service{db: dbClient, logg: logg}
}

type salesRow struct {
	OrderCount int
	ItemCount  int
	GrossCents int64
}

// SalesSummary sums the vendor's lines across orders whose payment completed
// in the period. Cancelled-then-refunded orders are excluded by payment
// status, not fulfillment status, since refunds flip payment to refunded.
func (s *service) SalesSummary(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*SalesSummary, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after start")
	}

	var row salesRow
	err := s.db.DB().WithContext(ctx).
		Model(&models.OrderItem{}).
		Select(`
			COUNT(DISTINCT order_items.order_id) AS order_count,
			COALESCE(SUM(order_items.qty), 0) AS item_count,
			COALESCE(SUM((order_items.unit_price_cents + order_items.shipping_price_cents) * order_items.qty), 0) AS gross_cents
		`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ?", vendorID).
		Where("orders.payment_status = ?", enums.PaymentStatusCompleted).
		Where("orders.created_at >= ? AND orders.created_at < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregating vendor sales")
	}

	return &SalesSummary{
		VendorID:    vendorID,
		PeriodStart: start,
		PeriodEnd:   end,
		OrderCount:  row.OrderCount,
		ItemCount:   row.ItemCount,
		Gross:       decimal.NewFromInt(row.GrossCents).Div(decimal.NewFromInt(100)),
	}, nil
}

// RecordPayout persists a payout bookkeeping row for a computed summary.
func (s *service) RecordPayout(ctx context.Context, summary *SalesSummary) (*models.VendorPayout, error) {
	if summary == nil || summary.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "summary with vendor id is required")
	}

	payout := &models.VendorPayout{
		ID:          uuid.New(),
		VendorID:    summary.VendorID,
		PeriodStart: summary.PeriodStart,
		PeriodEnd:   summary.PeriodEnd,
		OrderCount:  summary.OrderCount,
		Amount:      summary.Gross,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(payout).Error
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payout")
	}
	s.logg.Info(s.logg.WithField(ctx, "vendor_id", payout.VendorID.String()), "vendor payout recorded")
	return payout, nil
}
