package variant

import "storefront/internal/model"

// AddAttempt is the outcome of the add-to-cart guard.
// When Attempted is set no request may be issued; Missing names the options the
// shopper still has to pick, and NoVariant marks a complete selection that
// matches no variant of a variant-managed product.
type AddAttempt struct {
	Item      model.AddItem `json:"item"`
	Attempted bool          `json:"attempted"`
	Missing   []string      `json:"missing,omitempty"`
	NoVariant bool          `json:"no_variant,omitempty"`
}

// Ready reports whether the add request can be sent.
func (a AddAttempt) Ready() bool {
	return !a.Attempted
}

// PrepareAdd turns a selection into an add-to-cart request, or flags the
// attempt when the selection is incomplete.
func PrepareAdd(p model.Product, s Selection, qty int) AddAttempt {
	if qty < 1 {
		qty = 1
	}
	if missing := Missing(p, s); len(missing) > 0 {
		return AddAttempt{Attempted: true, Missing: missing}
	}
	item, ok := toAddItem(p, s)
	if !ok {
		return AddAttempt{Attempted: true, NoVariant: true}
	}
	item.Quantity = qty
	return AddAttempt{Item: item}
}

// toAddItem identifies the cart entry for a complete selection: the variant id
// for variant-managed products, the option choices otherwise.
func toAddItem(p model.Product, s Selection) (model.AddItem, bool) {
	item := model.AddItem{CatalogItemID: p.ID}
	if p.ManageVariants {
		v := SelectedVariant(p, s)
		if v == nil {
			return model.AddItem{}, false
		}
		item.VariantID = v.ID
		return item, true
	}
	item.Options = SelectedChoicesToVariantChoices(p, s)
	return item, true
}

// FindItemIDInCart returns the id of the line item holding the same catalog
// item and option combination as the selection.
func FindItemIDInCart(cart *model.Cart, p model.Product, s Selection) (string, bool) {
	if !Complete(p, s) {
		return "", false
	}
	item, ok := toAddItem(p, s)
	if !ok {
		return "", false
	}
	li, ok := FindLine(cart, item)
	return li.ID, ok
}

// FindLine returns the line item an add request should increment instead of
// inserting a new line.
func FindLine(cart *model.Cart, item model.AddItem) (model.LineItem, bool) {
	if cart == nil {
		return model.LineItem{}, false
	}
	for _, li := range cart.LineItems {
		if Matches(li, item) {
			return li, true
		}
	}
	return model.LineItem{}, false
}

// Matches is the "already in cart" rule: same catalog item, and either the same
// variant (variant-managed) or exactly the same set of option choices
// (option-managed).
func Matches(li model.LineItem, item model.AddItem) bool {
	if li.CatalogItemID != item.CatalogItemID {
		return false
	}
	if item.VariantID != "" {
		return li.VariantID == item.VariantID
	}
	return sameChoices(li.Options, item.Options)
}

func sameChoices(a, b []model.VariantChoice) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]string, len(a))
	for _, c := range a {
		set[c.Option] = c.Choice
	}
	for _, c := range b {
		if v, ok := set[c.Option]; !ok || v != c.Choice {
			return false
		}
	}
	return true
}
