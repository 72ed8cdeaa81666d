package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:payouts_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.VendorPayout{},
	))
	return NewService(pkgdb.NewWithConn(conn), logger.New(logger.Options{ServiceName: "test"})), conn
}

// seedOrder persists an order with one line for the vendor at the given
// creation time and payment status.
func seedOrder(t *testing.T, conn *gorm.DB, vendorID uuid.UUID, createdAt time.Time, status enums.PaymentStatus, qty, unitCents, shippingCents int) {
	t.Helper()
	order := models.Order{
		ID:                uuid.New(),
		BuyerID:           uuid.New(),
		TotalAmountCents:  unitCents * qty,
		GrandTotalCents:   (unitCents + shippingCents) * qty,
		PaymentMethod:     enums.PaymentMethodGateway,
		PaymentStatus:     status,
		FulfillmentStatus: enums.FulfillmentStatusConfirmed,
		ShippingAddress:   types.Address{Line1: "1 Main St", City: "Austin", PostalCode: "78701"},
		Items: []models.OrderItem{{
			ID:                 uuid.New(),
			OfferID:            uuid.New(),
			VendorID:           vendorID,
			ProductTitle:       "Item",
			SKU:                "SKU-" + uuid.NewString()[:8],
			Qty:                qty,
			UnitPriceCents:     unitCents,
			ShippingPriceCents: shippingCents,
		}},
	}
	require.NoError(t, conn.Create(&order).Error)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("created_at", createdAt).Error)
}

func TestSalesSummaryAggregatesCompletedSales(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	vendor := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	seedOrder(t, conn, vendor, start.Add(24*time.Hour), enums.PaymentStatusCompleted, 2, 2500, 500)
	seedOrder(t, conn, vendor, start.Add(48*time.Hour), enums.PaymentStatusCompleted, 1, 1000, 0)
	// Outside the period and wrong status, both excluded.
	seedOrder(t, conn, vendor, start.Add(-24*time.Hour), enums.PaymentStatusCompleted, 5, 9999, 0)
	seedOrder(t, conn, vendor, start.Add(72*time.Hour), enums.PaymentStatusPending, 3, 9999, 0)
	// Another vendor entirely.
	seedOrder(t, conn, uuid.New(), start.Add(24*time.Hour), enums.PaymentStatusCompleted, 1, 8888, 0)

	summary, err := svc.SalesSummary(ctx, vendor, start, end)
	require.NoError(t, err)
	require.Equal(t, 2, summary.OrderCount)
	require.Equal(t, 3, summary.ItemCount)
	// 2*(2500+500) + 1*1000 = 7000 cents.
	require.True(t, summary.Gross.Equal(decimal.NewFromInt(70)), "gross was %s", summary.Gross)
}

func TestSalesSummaryEmptyPeriod(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	summary, err := svc.SalesSummary(context.Background(), uuid.New(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Zero(t, summary.OrderCount)
	require.Zero(t, summary.ItemCount)
	require.True(t, summary.Gross.IsZero())
}

func TestSalesSummaryValidatesInput(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	now := time.Now()

	_, err := svc.SalesSummary(context.Background(), uuid.Nil, now.Add(-time.Hour), now)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.SalesSummary(context.Background(), uuid.New(), now, now)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRecordPayoutPersistsRow(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	vendor := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	payout, err := svc.RecordPayout(context.Background(), &SalesSummary{
		VendorID:    vendor,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
		OrderCount:  4,
		ItemCount:   9,
		Gross:       decimal.RequireFromString("112.50"),
	})
	require.NoError(t, err)
	require.Equal(t, vendor, payout.VendorID)

	var stored models.VendorPayout
	require.NoError(t, conn.First(&stored, "id = ?", payout.ID).Error)
	require.Equal(t, 4, stored.OrderCount)
	require.True(t, stored.Amount.Equal(decimal.RequireFromString("112.50")))
}
