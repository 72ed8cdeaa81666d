package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a shared catalog entry that vendors price independently through
// VendorOffer rows. Catalog CRUD lives outside the order engine; the model
// exists for reads and joins.
type Product struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Title      string     `gorm:"column:title;not null"`
	Slug       string     `gorm:"column:slug;uniqueIndex;not null"`
	BrandID    *uuid.UUID `gorm:"column:brand_id;type:uuid"`
	CategoryID *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Images     []string   `gorm:"column:images;type:jsonb;serializer:json"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
