// Package model defines the platform-neutral catalog, cart and error types
// shared by the gateway, the variant engine, the cart cache and the HTTP surface.
package model

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog product with its option/variant model.
//
// ManageVariants selects how price and stock resolve:
//   - true (variant-managed): from the Variant matching the full selection
//   - false (option-managed): from product-level data, the platform applies
//     catalog rules to the chosen options at add-to-cart time
type Product struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Ribbon          string    `json:"ribbon,omitempty"`
	Price           Money     `json:"price"`
	DiscountedPrice Money     `json:"discounted_price"`
	SKU             string    `json:"sku,omitempty"`
	Media           []Media   `json:"media"`
	Stock           Stock     `json:"stock"`
	Options         []Option  `json:"options"`
	Variants        []Variant `json:"variants,omitempty"`
	ManageVariants  bool      `json:"manage_variants"`
}

// Option returns the option with the given name.
func (p *Product) Option(name string) (Option, bool) {
	for _, o := range p.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Option is a named product dimension (e.g. "Size") with its ordered choices.
type Option struct {
	Name    string   `json:"name"`
	Choices []Choice `json:"choices"`
}

// Choice returns the choice with the given value.
func (o Option) Choice(value string) (Choice, bool) {
	for _, c := range o.Choices {
		if c.Value == value {
			return c, true
		}
	}
	return Choice{}, false
}

// Choice is a single value of an Option.
type Choice struct {
	Value       string  `json:"value"`
	Description string  `json:"description,omitempty"`
	InStock     bool    `json:"in_stock"`
	Visible     bool    `json:"visible"`
	Media       []Media `json:"media,omitempty"`
}

// Variant is one concrete choice-per-option combination.
type Variant struct {
	ID      string            `json:"id"`
	Choices map[string]string `json:"choices"` // option name -> choice value
	Price   Money             `json:"price"`
	SKU     string            `json:"sku,omitempty"`
	Media   []Media           `json:"media,omitempty"`
	Stock   Stock             `json:"stock"`
	Visible bool              `json:"visible"`
}

// Stock describes availability. Quantity is only meaningful when TrackQuantity is set.
type Stock struct {
	InStock       bool `json:"in_stock"`
	TrackQuantity bool `json:"track_quantity"`
	Quantity      int  `json:"quantity,omitempty"`
}

// Satisfies reports whether qty units can be supplied.
func (s Stock) Satisfies(qty int) bool {
	if !s.InStock {
		return false
	}
	if s.TrackQuantity && qty > s.Quantity {
		return false
	}
	return true
}

// Media is an image or video attached to a product or choice.
type Media struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Type   string `json:"type,omitempty"` // "image" | "video"
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Category is a catalog collection.
type Category struct {
	ID               string  `json:"id"`
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	NumberOfProducts int     `json:"number_of_products"`
	Media            []Media `json:"media,omitempty"`
}

// ProductPage is one page of a product query.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
}

// PriceBounds are the lowest and highest prices found in a category.
type PriceBounds struct {
	Lowest  decimal.Decimal `json:"lowest"`
	Highest decimal.Decimal `json:"highest"`
}

// SortOrder names the supported catalog sort orders.
type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
	SortNewest    SortOrder = "newest"
)

// Valid reports whether s is a known sort order.
func (s SortOrder) Valid() bool {
	switch s {
	case SortDefault, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortNewest:
		return true
	}
	return false
}

// ProductQuery filters and pages products within a category.
type ProductQuery struct {
	CategoryID string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       SortOrder
	Skip       int
	Limit      int
}
