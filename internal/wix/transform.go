package wix

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
)

// =============================================================================
// WIX → STOREFRONT TRANSFORMATION
// =============================================================================
//
// Catalog prices arrive as JSON numbers (decoded exactly by decimal), eCommerce
// prices as decimal strings. Both end up in model.Money. Missing prices are zero.
// =============================================================================

// === Catalog ===

// ProductToModel converts a Stores catalog product.
func ProductToModel(wp *WixProduct) model.Product {
	p := model.Product{
		ID:             wp.ID,
		Slug:           wp.Slug,
		Name:           wp.Name,
		Description:    wp.Description,
		Ribbon:         wp.Ribbon,
		SKU:            wp.SKU,
		Media:          transformMedia(wp.Media),
		Stock:          transformStock(wp.Stock, false),
		ManageVariants: wp.ManageVariants,
	}
	p.Price, p.DiscountedPrice = transformPriceData(wp.PriceData)

	p.Options = make([]model.Option, len(wp.ProductOptions))
	for i, o := range wp.ProductOptions {
		choices := make([]model.Choice, len(o.Choices))
		for j, c := range o.Choices {
			choices[j] = model.Choice{
				Value:       c.Value,
				Description: c.Description,
				InStock:     c.InStock,
				Visible:     c.Visible,
				Media:       transformMedia(c.Media),
			}
		}
		p.Options[i] = model.Option{Name: o.Name, Choices: choices}
	}

	for _, wv := range wp.Variants {
		v := model.Variant{
			ID:      wv.ID,
			Choices: wv.Choices,
			Stock:   transformStock(wv.Stock, true),
			Visible: true,
		}
		if wv.Variant != nil {
			v.Price, _ = transformPriceData(wv.Variant.PriceData)
			v.SKU = wv.Variant.SKU
			v.Visible = wv.Variant.Visible
		}
		if v.Price.IsZero() {
			v.Price = p.Price
		}
		p.Variants = append(p.Variants, v)
	}

	return p
}

// productsToModel converts a page of products.
func productsToModel(wps []WixProduct) []model.Product {
	result := make([]model.Product, len(wps))
	for i := range wps {
		result[i] = ProductToModel(&wps[i])
	}
	return result
}

// CollectionToModel converts a Stores collection into a category.
func CollectionToModel(wc *WixCollection) model.Category {
	return model.Category{
		ID:               wc.ID,
		Slug:             wc.Slug,
		Name:             wc.Name,
		Description:      wc.Description,
		NumberOfProducts: wc.NumberOfProducts,
		Media:            transformMedia(wc.Media),
	}
}

func transformPriceData(pd *WixPriceData) (price, discounted model.Money) {
	if pd == nil {
		return model.Money{}, model.Money{}
	}
	price.Currency = pd.Currency
	discounted.Currency = pd.Currency
	if pd.Price != nil {
		price.Amount = *pd.Price
	}
	if pd.DiscountedPrice != nil {
		discounted.Amount = *pd.DiscountedPrice
	} else {
		discounted.Amount = price.Amount
	}
	if pd.Formatted != nil {
		price.Formatted = pd.Formatted.Price
		discounted.Formatted = pd.Formatted.DiscountedPrice
	}
	return price, discounted
}

// transformStock converts product (trackInventory) or variant (trackQuantity) stock.
// A missing stock block means the platform does not track it: in stock.
func transformStock(ws *WixStock, variant bool) model.Stock {
	if ws == nil {
		return model.Stock{InStock: true}
	}
	s := model.Stock{InStock: ws.InStock, TrackQuantity: ws.TrackInventory}
	if variant {
		s.TrackQuantity = ws.TrackQuantity
	}
	if ws.Quantity != nil {
		s.Quantity = *ws.Quantity
	}
	return s
}

// transformMedia flattens the gallery, main media first.
func transformMedia(wm *WixMedia) []model.Media {
	if wm == nil {
		return nil
	}
	var result []model.Media
	seen := make(map[string]bool)
	add := func(item *WixMediaItem) {
		m, ok := transformMediaItem(item)
		if !ok {
			return
		}
		if m.ID != "" {
			if seen[m.ID] {
				return
			}
			seen[m.ID] = true
		}
		result = append(result, m)
	}
	if wm.MainMedia != nil {
		add(wm.MainMedia)
	}
	for i := range wm.Items {
		add(&wm.Items[i])
	}
	return result
}

func transformMediaItem(item *WixMediaItem) (model.Media, bool) {
	m := model.Media{ID: item.ID, Title: item.Title, Type: item.MediaType}
	switch {
	case item.Image != nil:
		m.URL, m.Width, m.Height = item.Image.URL, item.Image.Width, item.Image.Height
		if m.Type == "" {
			m.Type = "image"
		}
	case item.Video != nil && len(item.Video.Files) > 0:
		f := item.Video.Files[0]
		m.URL, m.Width, m.Height = f.URL, f.Width, f.Height
	default:
		return model.Media{}, false
	}
	return m, m.URL != ""
}

// === Cart ===

// CartToModel converts an eCommerce cart. A nil cart is an empty cart.
func CartToModel(wc *WixCart) model.Cart {
	if wc == nil {
		return model.Cart{LineItems: []model.LineItem{}}
	}
	return model.Cart{
		ID:        wc.ID,
		Currency:  wc.Currency,
		LineItems: transformLineItems(wc.LineItems, wc.Currency),
	}
}

// transformLineItems converts Wix line items.
func transformLineItems(items []WixLineItem, currency string) []model.LineItem {
	result := make([]model.LineItem, len(items))
	for i := range items {
		result[i] = transformLineItem(&items[i], currency)
	}
	return result
}

// transformLineItem converts a single Wix line item.
func transformLineItem(item *WixLineItem, currency string) model.LineItem {
	li := model.LineItem{
		ID:       item.ID,
		Quantity: item.Quantity,
		Price:    moneyFrom(item.Price, currency),
		InStock:  item.Availability == nil || item.Availability.Status != "NOT_AVAILABLE",
	}

	if item.ProductName != nil {
		li.Name = item.ProductName.Translated
		if li.Name == "" {
			li.Name = item.ProductName.Original
		}
	}

	if item.Image != nil {
		li.Image = item.Image.URL
	}

	if ref := item.CatalogReference; ref != nil {
		li.CatalogItemID = ref.CatalogItemID
		if ref.Options != nil {
			li.VariantID = ref.Options.VariantID
			li.Options = choicesFromMap(ref.Options.Options)
		}
	}

	return li
}

// choicesFromMap orders option choices by option name so the result is stable.
func choicesFromMap(m map[string]string) []model.VariantChoice {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]model.VariantChoice, len(names))
	for i, name := range names {
		result[i] = model.VariantChoice{Option: name, Choice: m[name]}
	}
	return result
}

// catalogRefFor builds the catalog reference for an add-to-cart request.
func catalogRefFor(item model.AddItem) *WixCatalogRef {
	ref := &WixCatalogRef{
		CatalogItemID: item.CatalogItemID,
		AppID:         WixStoresAppID,
	}
	switch {
	case item.VariantID != "":
		ref.Options = &WixCatalogOptions{VariantID: item.VariantID}
	case len(item.Options) > 0:
		opts := make(map[string]string, len(item.Options))
		for _, c := range item.Options {
			opts[c.Option] = c.Choice
		}
		ref.Options = &WixCatalogOptions{Options: opts}
	}
	return ref
}

// TotalsToModel converts an estimate-totals price summary.
func TotalsToModel(resp *WixEstimateTotalsResponse) model.CartTotals {
	if resp == nil {
		return model.CartTotals{}
	}
	return summaryToTotals(resp.PriceSummary, resp.Currency)
}

func summaryToTotals(ps *WixPriceSummary, currency string) model.CartTotals {
	if ps == nil {
		return model.CartTotals{}
	}
	return model.CartTotals{
		Subtotal: moneyFrom(ps.Subtotal, currency),
		Shipping: moneyFrom(ps.Shipping, currency),
		Tax:      moneyFrom(ps.Tax, currency),
		Discount: moneyFrom(ps.Discount, currency),
		Total:    moneyFrom(ps.Total, currency),
	}
}

// moneyFrom parses a Wix decimal string price. nil yields zero.
func moneyFrom(p *WixPrice, currency string) model.Money {
	if p == nil {
		return model.Money{Currency: currency}
	}
	return model.NewMoney(p.Amount, currency, p.FormattedAmount)
}

// === Orders ===

// OrderToModel converts an eCommerce order.
func OrderToModel(wo *WixOrder) model.Order {
	o := model.Order{
		ID:        wo.ID,
		Number:    wo.Number,
		Status:    wo.Status,
		LineItems: transformLineItems(wo.LineItems, wo.Currency),
		Totals:    summaryToTotals(wo.PriceSummary, wo.Currency),
	}
	if wo.BuyerInfo != nil {
		o.BuyerEmail = wo.BuyerInfo.Email
	}
	if t, err := time.Parse(time.RFC3339, wo.CreatedDate); err == nil {
		o.CreatedAt = t
	}
	return o
}

// === Queries ===

// productFilter renders the v1 filter JSON string for a category query.
func productFilter(q model.ProductQuery) string {
	filter := map[string]any{}
	if q.CategoryID != "" {
		filter["collections.id"] = map[string]any{"$hasSome": []string{q.CategoryID}}
	}
	price := map[string]any{}
	if q.MinPrice != nil {
		price["$gte"] = decimalNumber(*q.MinPrice)
	}
	if q.MaxPrice != nil {
		price["$lte"] = decimalNumber(*q.MaxPrice)
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if len(filter) == 0 {
		return ""
	}
	return mustJSON(filter)
}

// productSort renders the v1 sort JSON string.
func productSort(s model.SortOrder) string {
	var field, dir string
	switch s {
	case model.SortPriceAsc:
		field, dir = "price", "asc"
	case model.SortPriceDesc:
		field, dir = "price", "desc"
	case model.SortNameAsc:
		field, dir = "name", "asc"
	case model.SortNameDesc:
		field, dir = "name", "desc"
	case model.SortNewest:
		field, dir = "lastUpdated", "desc"
	default:
		return ""
	}
	return mustJSON([]map[string]string{{field: dir}})
}

// decimalNumber renders a decimal as a bare JSON number.
func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only maps of strings and numbers reach here.
		panic(err)
	}
	return string(b)
}
