package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/internal/offers"
	"github.com/mateoquintana/mercaderia-backend/pkg/db"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/gateway"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/metrics"
	"github.com/mateoquintana/mercaderia-backend/pkg/outbox"
	"github.com/mateoquintana/mercaderia-backend/pkg/pagination"
)

const maxOrderLines = 100

// Service is the order lifecycle engine: creation, retrieval, cancellation
// and the fulfillment state machine.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetForActor(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error)
}

type service struct {
	db      *db.Client
	orders  Repository
	offers  offers.Repository
	ledger  offers.Ledger
	events  *outbox.Publisher
	gateway gateway.IntentCreator
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
}

// NewService wires the order engine. The gateway client may be nil when
// online payments are disabled; creating a gateway order then fails fast.
func NewService(
	dbClient *db.Client,
	ordersRepo Repository,
	offersRepo offers.Repository,
	ledger offers.Ledger,
	events *outbox.Publisher,
	gatewayClient gateway.IntentCreator,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
) Service {
	return &service{
		db:      dbClient,
		orders:  ordersRepo,
		offers:  offersRepo,
		ledger:  ledger,
		events:  events,
		gateway: gatewayClient,
		metrics: orderMetrics,
		logg:    logg,
	}
}

// Create validates the requested lines against live offers, freezes prices
// into order items and persists the order. COD and wallet orders deduct
// stock inside the same transaction; gateway orders defer deduction to
// payment confirmation and register a payment intent after commit.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}
	if input.PaymentMethod == enums.PaymentMethodGateway && s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.OfferID)
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		sellable, err := s.offers.WithTx(tx).FindSellableByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading offers")
		}
		byID := make(map[uuid.UUID]models.VendorOffer, len(sellable))
		for _, offer := range sellable {
			byID[offer.ID] = offer
		}

		built, err := s.buildLines(input, byID)
		if err != nil {
			return err
		}

		order = &models.Order{
			ID:                uuid.New(),
			BuyerID:           input.BuyerID,
			PaymentMethod:     input.PaymentMethod,
			PaymentStatus:     enums.PaymentStatusPending,
			FulfillmentStatus: enums.FulfillmentStatusPending,
			ShippingAddress:   input.ShippingAddress,
			BillingAddress:    input.BillingAddress,
			Notes:             input.Notes,
			Items:             built,
		}
		for i := range order.Items {
			order.Items[i].ID = uuid.New()
			order.Items[i].OrderID = order.ID
			order.TotalAmountCents += order.Items[i].SubtotalCents()
			order.ShippingPriceCents += order.Items[i].ShippingSubtotalCents()
		}
		order.GrandTotalCents = order.TotalAmountCents + order.ShippingPriceCents

		if input.PaymentMethod.SettlesAtCreation() {
			for i := range order.Items {
				if err := s.ledger.Reserve(ctx, tx, order.Items[i].OfferID, order.Items[i].Qty); err != nil {
					return err
				}
				order.Items[i].StockDeducted = true
			}
			if input.PaymentMethod == enums.PaymentMethodWallet {
				order.PaymentStatus = enums.PaymentStatusCompleted
			}
		}

		if order, err = s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting order")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.ActorRoleBuyer},
			Data: map[string]any{
				"payment_method":    order.PaymentMethod,
				"grand_total_cents": order.GrandTotalCents,
				"item_count":        len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated(string(order.PaymentMethod))

	if order.PaymentMethod == enums.PaymentMethodGateway {
		if err := s.registerIntent(ctx, order); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// registerIntent runs after the creation transaction commits. A gateway
// failure here leaves the order persisted in pending; the buyer can retry
// payment or cancel.
func (s *service) registerIntent(ctx context.Context, order *models.Order) error {
	intentID, err := s.gateway.CreateIntent(ctx, order.GrandTotalCents, enums.CurrencyUSD, order.ID.String())
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "payment intent registration failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "registering payment intent").
			WithDetails(map[string]any{"order_id": order.ID})
	}
	if err := s.orders.Update(ctx, order.ID, map[string]any{"gateway_order_id": intentID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing gateway order id")
	}
	order.GatewayOrderID = &intentID
	return nil
}

func (s *service) validateCreate(input CreateOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if len(input.Items) > maxOrderLines {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many order lines").
			WithDetails(map[string]any{"max": maxOrderLines})
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.OfferID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive").
				WithDetails(map[string]any{"offer_id": item.OfferID})
		}
		if _, dup := seen[item.OfferID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate offer in order").
				WithDetails(map[string]any{"offer_id": item.OfferID})
		}
		seen[item.OfferID] = struct{}{}
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	if input.BillingAddress != nil {
		if err := input.BillingAddress.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing address")
		}
	}
	return nil
}

// buildLines freezes each requested offer into an order item, rejecting
// unknown or unsellable offers and insufficient stock.
func (s *service) buildLines(input CreateOrderInput, byID map[uuid.UUID]models.VendorOffer) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, requested := range input.Items {
		offer, ok := byID[requested.OfferID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found or unavailable").
				WithDetails(map[string]any{"offer_id": requested.OfferID})
		}
		if offer.Stock < requested.Qty {
			s.metrics.IncStockConflict()
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{
					"offer_id":  offer.ID,
					"requested": requested.Qty,
					"available": offer.Stock,
				})
		}
		title := offer.SKU
		if offer.Product != nil {
			title = offer.Product.Title
		}
		items = append(items, models.OrderItem{
			OfferID:            offer.ID,
			VendorID:           offer.VendorID,
			ProductTitle:       title,
			SKU:                offer.SKU,
			Qty:                requested.Qty,
			UnitPriceCents:     offer.UnitPriceCents,
			ShippingPriceCents: offer.ShippingPriceCents,
		})
	}
	return items, nil
}

// GetForActor loads one order, enforcing the role's visibility: buyers see
// their own orders, vendors see orders containing their items, admins see
// everything.
func (s *service) GetForActor(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func classifyLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
}

func authorizeRead(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleBuyer:
		if order.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil
	case enums.ActorRoleVendor:
		if !vendorOwnsItems(order, actor.VendorID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.orders.ListByBuyer(ctx, buyerID, params)
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.orders.ListByVendor(ctx, vendorID, params)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return s.orders.ListAll(ctx, params)
}

// Cancel is the buyer-facing wrapper over the cancelled transition.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.UpdateStatus(ctx, StatusUpdateInput{
		OrderID: orderID,
		Status:  enums.FulfillmentStatusCancelled,
		Actor:   actor,
	})
}

// UpdateStatus applies one fulfillment transition under the role rules.
// Cancellation restores stock for every deducted line and refunds completed
// payments. A transition into confirmed deducts the actor's still-pending
// lines: the vendor's own for vendors, all remaining for admins.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error) {
	actor := input.Actor
	var updated *models.Order

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return classifyLoadError(err)
		}
		if err := authorizeRead(order, actor); err != nil {
			return err
		}
		if err := validateTransition(order, input.Status, actor.Role); err != nil {
			return err
		}
		if err := validateDeliveredPayment(order, input.Status); err != nil {
			return err
		}

		updates := map[string]any{"fulfillment_status": input.Status}

		switch input.Status {
		case enums.FulfillmentStatusCancelled:
			if err := s.releaseDeducted(ctx, tx, repo, order); err != nil {
				return err
			}
			if order.PaymentStatus == enums.PaymentStatusCompleted {
				updates["payment_status"] = enums.PaymentStatusRefunded
			}
		case enums.FulfillmentStatusConfirmed:
			if err := s.deductRemaining(ctx, tx, repo, order, actor); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}

		eventType := enums.EventOrderStatusChanged
		if input.Status == enums.FulfillmentStatusCancelled {
			eventType = enums.EventOrderCancelled
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: map[string]any{
				"from": order.FulfillmentStatus,
				"to":   input.Status,
			},
		}); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// releaseDeducted restores stock for every deducted line and clears the
// flags, so a repeated cancellation attempt never double-releases.
func (s *service) releaseDeducted(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	var released []uuid.UUID
	for _, item := range order.Items {
		if !item.StockDeducted {
			continue
		}
		if err := s.ledger.Release(ctx, tx, item.OfferID, item.Qty); err != nil {
			return err
		}
		released = append(released, item.ID)
	}
	if len(released) == 0 {
		return nil
	}
	return repo.MarkItemsDeducted(ctx, released, false)
}

// deductRemaining deducts stock for lines not yet deducted. Vendors only
// touch their own lines; admins sweep whatever is left.
func (s *service) deductRemaining(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor Actor) error {
	var deducted []uuid.UUID
	for _, item := range order.Items {
		if item.StockDeducted {
			continue
		}
		if actor.Role == enums.ActorRoleVendor {
			if actor.VendorID == nil || item.VendorID != *actor.VendorID {
				continue
			}
		}
		if err := s.ledger.Reserve(ctx, tx, item.OfferID, item.Qty); err != nil {
			return err
		}
		deducted = append(deducted, item.ID)
	}
	if len(deducted) == 0 {
		return nil
	}
	return repo.MarkItemsDeducted(ctx, deducted, true)
}
