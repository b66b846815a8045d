package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusArchived = "archived"
)

// Product is the catalog shape the cart core reads. The three image fields
// reflect the storage shapes the catalog has accumulated over time; see
// ImageForColour for how they are reconciled.
type Product struct {
	ID             uuid.UUID
	Name           string
	PriceCents     int64
	SalePriceCents *int64
	SaleStartsAt   *time.Time
	SaleEndsAt     *time.Time
	Status         string
	StockQuantity  int
	MainImageURL   string
	LegacyImageURL string
	ColourImages   map[string][]string
}

func (p Product) Sellable() bool {
	return p.Status == ProductStatusActive
}

// EffectivePriceCents returns the sale price when now falls inside the sale
// window, else the list price. A nil window bound is open-ended.
func (p Product) EffectivePriceCents(now time.Time) int64 {
	if p.SalePriceCents == nil {
		return p.PriceCents
	}
	if p.SaleStartsAt != nil && now.Before(*p.SaleStartsAt) {
		return p.PriceCents
	}
	if p.SaleEndsAt != nil && now.After(*p.SaleEndsAt) {
		return p.PriceCents
	}
	return *p.SalePriceCents
}

// ImageForColour picks the display image for a line item. The fallback order
// is load-bearing: per-colour set matching the selected colour
// (case-insensitive), then the main image, then the first image of any
// colour, then the legacy single-image field. Products shaped by older
// catalog imports only populate the later fields.
func (p Product) ImageForColour(colour string) string {
	if colour != "" {
		for c, urls := range p.ColourImages {
			if strings.EqualFold(c, colour) && len(urls) > 0 {
				return urls[0]
			}
		}
	}
	if p.MainImageURL != "" {
		return p.MainImageURL
	}
	for _, urls := range p.ColourImages {
		if len(urls) > 0 {
			return urls[0]
		}
	}
	return p.LegacyImageURL
}

type Variant struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	Size            string
	Colour          string
	PriceDeltaCents int64
	StockQuantity   int
	Status          string
}

func (v Variant) Sellable() bool {
	return v.Status == ProductStatusActive
}

// ProductSummary is the catalog listing row.
type ProductSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}
