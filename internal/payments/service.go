package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/internal/cart"
	"github.com/mateoquintana/mercaderia-backend/internal/offers"
	"github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/gateway"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/metrics"
	"github.com/mateoquintana/mercaderia-backend/pkg/outbox"
	"github.com/mateoquintana/mercaderia-backend/pkg/redis"
)

// replayTTL bounds how long a processed gateway payment id is remembered.
const replayTTL = 24 * time.Hour

// ConfirmInput is the gateway callback payload after signature extraction.
type ConfirmInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// ConfirmResult reports the confirmation outcome. Replayed is true when the
// payment had already been applied and the call was a no-op.
type ConfirmResult struct {
	Order    *models.Order
	Replayed bool
}

// Service applies gateway payment outcomes to orders.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	MarkFailed(ctx context.Context, input ConfirmInput) (*models.Order, error)
}

type service struct {
	db       *db.Client
	orders   orders.Repository
	ledger   offers.Ledger
	cart     cart.Repository
	events   *outbox.Publisher
	verifier gateway.SignatureVerifier
	replay   *redis.Client
	policy   db.RetryPolicy
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
}

// NewService wires the payment confirmation flow. The redis client is an
// optional first-line replay guard; durable idempotency comes from the
// order's payment status.
func NewService(
	dbClient *db.Client,
	ordersRepo orders.Repository,
	ledger offers.Ledger,
	cartRepo cart.Repository,
	events *outbox.Publisher,
	verifier gateway.SignatureVerifier,
	replay *redis.Client,
	policy db.RetryPolicy,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
) Service {
	return &service{
		db:       dbClient,
		orders:   ordersRepo,
		ledger:   ledger,
		cart:     cartRepo,
		events:   events,
		verifier: verifier,
		replay:   replay,
		policy:   policy,
		metrics:  orderMetrics,
		logg:     logg,
	}
}

// Confirm verifies the callback, marks the order paid and deducts stock for
// every line not already deducted. Replays of the same gateway payment id
// return the current order state without touching stock again. The whole
// write runs under a bounded conflict-retry transaction.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	if err := s.authenticate(ctx, input); err != nil {
		return nil, err
	}

	if replayed, err := s.seenBefore(ctx, input.GatewayPaymentID); err == nil && replayed {
		order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
		if err != nil {
			return nil, classifyLoadError(err)
		}
		s.metrics.IncConfirmation("replay")
		return &ConfirmResult{Order: order, Replayed: true}, nil
	}

	var (
		result   ConfirmResult
		attempts int
	)
	err := s.db.WithConflictRetry(ctx, s.policy, func(tx *gorm.DB) error {
		attempts++
		result = ConfirmResult{}

		repo := s.orders.WithTx(tx)
		order, err := repo.FindByGatewayOrderID(ctx, input.GatewayOrderID)
		if err != nil {
			return classifyLoadError(err)
		}

		switch order.PaymentStatus {
		case enums.PaymentStatusCompleted:
			result = ConfirmResult{Order: order, Replayed: true}
			return nil
		case enums.PaymentStatusRefunded:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment was refunded").
				WithDetails(map[string]any{"order_id": order.ID})
		}
		if order.FulfillmentStatus == enums.FulfillmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled").
				WithDetails(map[string]any{"order_id": order.ID})
		}

		var deducted []uuid.UUID
		for _, item := range order.Items {
			if item.StockDeducted {
				continue
			}
			if err := s.ledger.Reserve(ctx, tx, item.OfferID, item.Qty); err != nil {
				return err
			}
			deducted = append(deducted, item.ID)
		}
		if len(deducted) > 0 {
			if err := repo.MarkItemsDeducted(ctx, deducted, true); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking items deducted")
			}
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status":     enums.PaymentStatusCompleted,
			"gateway_payment_id": input.GatewayPaymentID,
			"gateway_signature":  input.Signature,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment status")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: map[string]any{
				"gateway_payment_id": input.GatewayPaymentID,
				"grand_total_cents":  order.GrandTotalCents,
			},
		}); err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return classifyLoadError(err)
		}
		result = ConfirmResult{Order: updated}
		return nil
	})
	for i := 1; i < attempts; i++ {
		s.metrics.IncRetry()
	}
	if err != nil {
		s.metrics.IncConfirmation("failed")
		if db.IsWriteConflict(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment confirmation conflicted, retries exhausted")
		}
		return nil, err
	}

	if result.Replayed {
		s.metrics.IncConfirmation("replay")
		return &result, nil
	}
	s.metrics.IncConfirmation("completed")
	s.afterConfirm(ctx, input, result.Order)
	return &result, nil
}

// MarkFailed records a gateway failure callback. Stock was never deducted
// for a pending gateway order, so only the payment status moves.
func (s *service) MarkFailed(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if err := s.authenticate(ctx, input); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}

	if err := s.orders.Update(ctx, order.ID, map[string]any{
		"payment_status":     enums.PaymentStatusFailed,
		"gateway_payment_id": input.GatewayPaymentID,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment status")
	}
	s.metrics.IncConfirmation("gateway_failed")
	return s.orders.FindByGatewayOrderID(ctx, input.GatewayOrderID)
}

func (s *service) authenticate(ctx context.Context, input ConfirmInput) error {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway order id and payment id are required")
	}
	if s.verifier == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "signature verifier not configured")
	}
	if s.verifier.DevMode() {
		s.logg.Warn(ctx, "gateway signature verification disabled")
		return nil
	}
	if !s.verifier.Verify(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid gateway signature")
	}
	return nil
}

// seenBefore consults the redis replay guard. Errors degrade to "not seen";
// the durable check inside the transaction still holds.
func (s *service) seenBefore(ctx context.Context, gatewayPaymentID string) (bool, error) {
	if s.replay == nil {
		return false, nil
	}
	key := s.replay.PaymentReplayKey(gatewayPaymentID)
	_, err := s.replay.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if redis.IsNil(err) {
		return false, nil
	}
	s.logg.Warn(ctx, "replay guard read failed")
	return false, err
}

// afterConfirm runs the best-effort side effects that must not affect the
// confirmation outcome: replay key write and cart clearing.
func (s *service) afterConfirm(ctx context.Context, input ConfirmInput, order *models.Order) {
	if s.replay != nil {
		key := s.replay.PaymentReplayKey(input.GatewayPaymentID)
		if err := s.replay.Set(ctx, key, input.GatewayOrderID, replayTTL); err != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "replay guard write failed")
		}
	}
	if s.cart != nil {
		if err := s.cart.ClearForBuyer(ctx, order.BuyerID); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "cart clear after payment failed", err)
		}
	}
}

func classifyLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
}
