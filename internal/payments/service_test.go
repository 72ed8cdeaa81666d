package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/internal/cart"
	"github.com/mateoquintana/mercaderia-backend/internal/offers"
	"github.com/mateoquintana/mercaderia-backend/internal/orders"
	pkgdb "github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/gateway"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/outbox"
	"github.com/mateoquintana/mercaderia-backend/pkg/types"
)

const testSecret = "test-webhook-secret"

// hmacVerifier checks signatures against a fixed secret, mirroring the
// production client without HTTP plumbing.
type hmacVerifier struct {
	secret string
}

func (v hmacVerifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return gateway.VerifyConfirmation(v.secret, gatewayOrderID, gatewayPaymentID, signature)
}

func (v hmacVerifier) DevMode() bool {
	return v.secret == ""
}

type testEnv struct {
	db  *gorm.DB
	svc Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.VendorOffer{},
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewService(
		pkgdb.NewWithConn(conn),
		orders.NewRepository(conn),
		offers.NewLedger(),
		cart.NewRepository(conn),
		outbox.NewPublisher(),
		hmacVerifier{secret: testSecret},
		nil,
		pkgdb.DefaultRetryPolicy(),
		nil,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	return &testEnv{db: conn, svc: svc}
}

// seedGatewayOrder persists a pending gateway order with one undeducted
// line, plus the offer backing it.
func (e *testEnv) seedGatewayOrder(t *testing.T, gatewayOrderID string, qty, stock int) (*models.Order, models.VendorOffer) {
	t.Helper()
	product := models.Product{
		ID:     uuid.New(),
		Title:  "Walnut Desk Tray",
		Slug:   "walnut-desk-tray-" + uuid.NewString()[:8],
		Active: true,
	}
	if err := e.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	offer := models.VendorOffer{
		ID:             uuid.New(),
		ProductID:      product.ID,
		VendorID:       uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		UnitPriceCents: 4500,
		Stock:          stock,
		ApprovalStatus: enums.OfferApprovalApproved,
		Active:         true,
	}
	if err := e.db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	order := models.Order{
		ID:                uuid.New(),
		BuyerID:           uuid.New(),
		TotalAmountCents:  4500 * qty,
		GrandTotalCents:   4500 * qty,
		PaymentMethod:     enums.PaymentMethodGateway,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		GatewayOrderID:    &gatewayOrderID,
		ShippingAddress: types.Address{
			FullName:   "Ana Torres",
			Line1:      "123 Calle Luna",
			City:       "Austin",
			State:      "TX",
			PostalCode: "78701",
			Country:    "US",
		},
		Items: []models.OrderItem{{
			ID:             uuid.New(),
			OfferID:        offer.ID,
			VendorID:       offer.VendorID,
			ProductTitle:   product.Title,
			SKU:            offer.SKU,
			Qty:            qty,
			UnitPriceCents: offer.UnitPriceCents,
		}},
	}
	if err := e.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &order, offer
}

func (e *testEnv) offerStock(t *testing.T, offerID uuid.UUID) int {
	t.Helper()
	var offer models.VendorOffer
	if err := e.db.First(&offer, "id = ?", offerID).Error; err != nil {
		t.Fatalf("load offer: %v", err)
	}
	return offer.Stock
}

func signedInput(gatewayOrderID, gatewayPaymentID string) ConfirmInput {
	return ConfirmInput{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		Signature:        gateway.SignConfirmation(testSecret, gatewayOrderID, gatewayPaymentID),
	}
}

func TestConfirmCompletesOrderAndDeductsStock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	order, offer := env.seedGatewayOrder(t, "gw_order_1", 2, 10)

	if err := env.db.Create(&models.CartItem{
		ID:      uuid.New(),
		BuyerID: order.BuyerID,
		OfferID: offer.ID,
		Qty:     2,
	}).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	result, err := env.svc.Confirm(ctx, signedInput("gw_order_1", "pay_1"))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Replayed {
		t.Fatalf("first confirmation must not report a replay")
	}
	if result.Order.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %s", result.Order.PaymentStatus)
	}
	if result.Order.GatewayPaymentID == nil || *result.Order.GatewayPaymentID != "pay_1" {
		t.Fatalf("gateway payment id not recorded: %v", result.Order.GatewayPaymentID)
	}
	if !result.Order.Items[0].StockDeducted {
		t.Fatalf("confirmation should deduct the line")
	}
	if got := env.offerStock(t, offer.ID); got != 8 {
		t.Fatalf("expected stock 8, got %d", got)
	}

	var events []models.OutboxEvent
	if err := env.db.Where("event_type = ?", enums.EventOrderPaid).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one order_paid event, got %d", len(events))
	}

	var cartRows int64
	if err := env.db.Model(&models.CartItem{}).Where("buyer_id = ?", order.BuyerID).Count(&cartRows).Error; err != nil {
		t.Fatalf("count cart: %v", err)
	}
	if cartRows != 0 {
		t.Fatalf("buyer cart should be cleared, %d rows remain", cartRows)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_, offer := env.seedGatewayOrder(t, "gw_order_2", 3, 10)

	if _, err := env.svc.Confirm(ctx, signedInput("gw_order_2", "pay_2")); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := env.svc.Confirm(ctx, signedInput("gw_order_2", "pay_2"))
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("repeat confirmation should report a replay")
	}
	if got := env.offerStock(t, offer.ID); got != 7 {
		t.Fatalf("replay must not deduct twice, stock %d", got)
	}
}

func TestConfirmRejectsBadSignature(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedGatewayOrder(t, "gw_order_3", 1, 5)

	_, err := env.svc.Confirm(context.Background(), ConfirmInput{
		GatewayOrderID:   "gw_order_3",
		GatewayPaymentID: "pay_3",
		Signature:        "deadbeef",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestConfirmRejectsCancelledOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, offer := env.seedGatewayOrder(t, "gw_order_4", 1, 5)

	if err := env.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("fulfillment_status", enums.FulfillmentStatusCancelled).Error; err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	_, err := env.svc.Confirm(context.Background(), signedInput("gw_order_4", "pay_4"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := env.offerStock(t, offer.ID); got != 5 {
		t.Fatalf("stock must stay untouched, got %d", got)
	}
}

func TestConfirmUnknownGatewayOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.Confirm(context.Background(), signedInput("gw_missing", "pay_5"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkFailedRecordsFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_, offer := env.seedGatewayOrder(t, "gw_order_6", 1, 5)

	order, err := env.svc.MarkFailed(ctx, signedInput("gw_order_6", "pay_6"))
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment, got %s", order.PaymentStatus)
	}
	if got := env.offerStock(t, offer.ID); got != 5 {
		t.Fatalf("failure must not touch stock, got %d", got)
	}

	_, err = env.svc.MarkFailed(ctx, signedInput("gw_order_6", "pay_6"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("second failure callback should conflict, got %v", err)
	}
}
