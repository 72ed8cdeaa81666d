package offers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:offers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.VendorOffer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOffer(t *testing.T, db *gorm.DB, stock int) models.VendorOffer {
	t.Helper()
	offer := models.VendorOffer{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		VendorID:       uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		UnitPriceCents: 1500,
		Stock:          stock,
		ApprovalStatus: enums.OfferApprovalApproved,
		Active:         true,
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return offer
}

func TestLedgerReserveAndRelease(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	offer := seedOffer(t, db, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, offer.ID, 4)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var got models.VendorOffer
	if err := db.First(&got, "id = ?", offer.ID).Error; err != nil {
		t.Fatalf("load offer: %v", err)
	}
	if got.Stock != 6 {
		t.Fatalf("expected stock 6 after reserve, got %d", got.Stock)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(ctx, tx, offer.ID, 4)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := db.First(&got, "id = ?", offer.ID).Error; err != nil {
		t.Fatalf("reload offer: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("expected stock 10 after release, got %d", got.Stock)
	}
}

func TestLedgerInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	offer := seedOffer(t, db, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, offer.ID, 0)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Release(ctx, tx, offer.ID, -1)
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLedgerUnknownOffer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, uuid.New(), 1)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestFindSellableByIDsFiltersUnsellable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)

	approved := seedOffer(t, db, 5)

	pending := seedOffer(t, db, 5)
	if err := db.Model(&models.VendorOffer{}).
		Where("id = ?", pending.ID).
		Update("approval_status", enums.OfferApprovalPending).Error; err != nil {
		t.Fatalf("downgrade offer: %v", err)
	}

	inactive := seedOffer(t, db, 5)
	if err := db.Model(&models.VendorOffer{}).
		Where("id = ?", inactive.ID).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate offer: %v", err)
	}

	got, err := repo.FindSellableByIDs(ctx, []uuid.UUID{approved.ID, pending.ID, inactive.ID})
	if err != nil {
		t.Fatalf("find sellable: %v", err)
	}
	if len(got) != 1 || got[0].ID != approved.ID {
		t.Fatalf("expected only the approved active offer, got %d rows", len(got))
	}
}
