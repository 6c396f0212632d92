// Package variant resolves a shopper's option choices against a product's
// option/variant model.
//
// Everything here is a pure function of (model.Product, Selection). Nothing is
// cached and nothing blocks; callers recompute on every selection change.
package variant

import (
	"fmt"

	"storefront/internal/model"
)

// Selection maps every product option to its chosen value ("" = unselected)
// plus the quantity the shopper wants.
type Selection struct {
	Choices  map[string]string `json:"choices"`
	Quantity int               `json:"quantity"`
}

// NewSelection creates a selection with one entry per product option.
// Options with exactly one choice are pre-selected.
func NewSelection(p model.Product) Selection {
	s := Selection{Choices: make(map[string]string, len(p.Options)), Quantity: 1}
	for _, o := range p.Options {
		if len(o.Choices) == 1 {
			s.Choices[o.Name] = o.Choices[0].Value
		} else {
			s.Choices[o.Name] = ""
		}
	}
	return s
}

// Choose returns a copy of s with option set to choice and the quantity reset
// to 1. Options the selection does not know are ignored.
func (s Selection) Choose(option, choice string) Selection {
	if _, ok := s.Choices[option]; !ok {
		return s
	}
	next := Selection{Choices: make(map[string]string, len(s.Choices)), Quantity: 1}
	for k, v := range s.Choices {
		next.Choices[k] = v
	}
	next.Choices[option] = choice
	return next
}

// WithQuantity returns a copy of s with the given quantity (minimum 1).
func (s Selection) WithQuantity(qty int) Selection {
	if qty < 1 {
		qty = 1
	}
	s.Quantity = qty
	return s
}

// Apply builds a selection from raw option choices, validating each option and
// value against the product.
func Apply(p model.Product, choices map[string]string, qty int) (Selection, error) {
	s := NewSelection(p)
	for name, value := range choices {
		o, ok := p.Option(name)
		if !ok {
			return Selection{}, model.NewValidationError("choices", fmt.Sprintf("unknown option %q", name))
		}
		if value == "" {
			continue
		}
		if _, ok := o.Choice(value); !ok {
			return Selection{}, model.NewValidationError("choices", fmt.Sprintf("unknown value %q for option %q", value, name))
		}
		s = s.Choose(name, value)
	}
	return s.WithQuantity(qty), nil
}

// Missing lists the unselected options in product option order.
func Missing(p model.Product, s Selection) []string {
	var missing []string
	for _, o := range p.Options {
		if s.Choices[o.Name] == "" {
			missing = append(missing, o.Name)
		}
	}
	return missing
}

// Complete reports whether every product option has a choice.
func Complete(p model.Product, s Selection) bool {
	return len(Missing(p, s)) == 0
}

// SelectedVariant returns the variant whose choices exactly equal the
// selection. Partial selections and near misses return nil.
func SelectedVariant(p model.Product, s Selection) *model.Variant {
	if !Complete(p, s) {
		return nil
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if len(v.Choices) != len(p.Options) {
			continue
		}
		match := true
		for _, o := range p.Options {
			if v.Choices[o.Name] != s.Choices[o.Name] {
				match = false
				break
			}
		}
		if match {
			return v
		}
	}
	return nil
}

// resolvedVariant is the variant that drives price and stock: only for
// variant-managed products with a full, exactly matching selection.
func resolvedVariant(p model.Product, s Selection) *model.Variant {
	if !p.ManageVariants {
		return nil
	}
	return SelectedVariant(p, s)
}

// Price is the list and the effective (discounted) price of a selection.
type Price struct {
	Price      model.Money `json:"price"`
	Discounted model.Money `json:"discounted_price"`
}

// PriceData resolves the price from the matching variant, or the product.
func PriceData(p model.Product, s Selection) Price {
	if v := resolvedVariant(p, s); v != nil {
		return Price{Price: v.Price, Discounted: v.Price}
	}
	discounted := p.DiscountedPrice
	if discounted.IsZero() {
		discounted = p.Price
	}
	return Price{Price: p.Price, Discounted: discounted}
}

// SKU resolves the SKU from the matching variant, or the product.
func SKU(p model.Product, s Selection) string {
	if v := resolvedVariant(p, s); v != nil && v.SKU != "" {
		return v.SKU
	}
	return p.SKU
}

// Media returns the media to show: the variant's, then that of the selected
// choices in option order, then the product gallery.
func Media(p model.Product, s Selection) []model.Media {
	if v := resolvedVariant(p, s); v != nil && len(v.Media) > 0 {
		return v.Media
	}
	var media []model.Media
	for _, o := range p.Options {
		if c, ok := o.Choice(s.Choices[o.Name]); ok {
			media = append(media, c.Media...)
		}
	}
	if len(media) > 0 {
		return media
	}
	return p.Media
}

// IsOutOfStock reports whether qty units of the selection cannot be supplied:
// a selected choice is unavailable, the resolved variant cannot satisfy qty, or
// (without a resolved variant) the product cannot. A complete selection of a
// variant-managed product with no matching variant is out of stock too.
func IsOutOfStock(p model.Product, s Selection, qty int) bool {
	for _, o := range p.Options {
		if c, ok := o.Choice(s.Choices[o.Name]); ok && !c.InStock {
			return true
		}
	}
	if p.ManageVariants && Complete(p, s) && len(p.Options) > 0 {
		v := SelectedVariant(p, s)
		if v == nil {
			return true
		}
		return !v.Stock.Satisfies(qty)
	}
	return !p.Stock.Satisfies(qty)
}

// ChoiceView is a choice annotated for display.
type ChoiceView struct {
	model.Choice
	Selected   bool `json:"selected"`
	Selectable bool `json:"selectable"`
}

// OptionView is an option with annotated choices.
type OptionView struct {
	Name     string       `json:"name"`
	Selected string       `json:"selected,omitempty"`
	Choices  []ChoiceView `json:"choices"`
}

// ProductOptions annotates every choice with whether it can still be picked
// given the other selected options. For variant-managed products a choice is
// selectable when some visible, in-stock variant agrees with it and with every
// other selected option; otherwise the choice's own flags decide.
func ProductOptions(p model.Product, s Selection) []OptionView {
	views := make([]OptionView, len(p.Options))
	for i, o := range p.Options {
		view := OptionView{Name: o.Name, Selected: s.Choices[o.Name], Choices: make([]ChoiceView, len(o.Choices))}
		for j, c := range o.Choices {
			selectable := c.InStock && c.Visible
			if selectable && p.ManageVariants && len(p.Variants) > 0 {
				selectable = hasVariantWith(p, s, o.Name, c.Value)
			}
			view.Choices[j] = ChoiceView{
				Choice:     c,
				Selected:   s.Choices[o.Name] == c.Value,
				Selectable: selectable,
			}
		}
		views[i] = view
	}
	return views
}

func hasVariantWith(p model.Product, s Selection, option, value string) bool {
	for _, v := range p.Variants {
		if !v.Visible || !v.Stock.InStock || v.Choices[option] != value {
			continue
		}
		agrees := true
		for name, chosen := range s.Choices {
			if name == option || chosen == "" {
				continue
			}
			if v.Choices[name] != chosen {
				agrees = false
				break
			}
		}
		if agrees {
			return true
		}
	}
	return false
}

// SelectedChoicesToVariantChoices converts the selection to the ordered list
// form used for option-managed add-to-cart, in product option order.
// Unselected options are skipped.
func SelectedChoicesToVariantChoices(p model.Product, s Selection) []model.VariantChoice {
	var result []model.VariantChoice
	for _, o := range p.Options {
		if c := s.Choices[o.Name]; c != "" {
			result = append(result, model.VariantChoice{Option: o.Name, Choice: c})
		}
	}
	return result
}

// ResolvedSelection bundles every projection of a selection.
type ResolvedSelection struct {
	Complete   bool           `json:"complete"`
	Missing    []string       `json:"missing,omitempty"`
	Variant    *model.Variant `json:"variant,omitempty"`
	Price      Price          `json:"price"`
	Total      model.Money    `json:"total"`
	SKU        string         `json:"sku,omitempty"`
	Media      []model.Media  `json:"media"`
	OutOfStock bool           `json:"out_of_stock"`
	Quantity   int            `json:"quantity"`
}

// Resolve computes the full projection of a selection.
func Resolve(p model.Product, s Selection) ResolvedSelection {
	qty := s.Quantity
	if qty < 1 {
		qty = 1
	}
	missing := Missing(p, s)
	price := PriceData(p, s)
	r := ResolvedSelection{
		Complete:   len(missing) == 0,
		Missing:    missing,
		Price:      price,
		Total:      price.Discounted.Mul(qty),
		SKU:        SKU(p, s),
		Media:      Media(p, s),
		OutOfStock: IsOutOfStock(p, s, qty),
		Quantity:   qty,
	}
	if r.Complete {
		r.Variant = SelectedVariant(p, s)
	}
	return r
}
