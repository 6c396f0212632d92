// Package wix implements the storefront gateway on top of the Wix Headless APIs:
// Stores catalog v1 for products and collections, eCommerce for the visitor cart,
// checkout, and orders, and Redirects for the hosted checkout page.
//
// Authentication:
// Uses OAuth2 with anonymous visitor tokens (grantType: "anonymous").
// No client_secret needed - only client_id. Tokens expire in 4 hours (14400s).
// Each token represents a unique visitor session tied to cart/checkout state.
package wix

import "github.com/shopspring/decimal"

// === OAuth2 Types ===

// OAuthTokenRequest is the request body for anonymous visitor token.
type OAuthTokenRequest struct {
	ClientID  string `json:"clientId"`
	GrantType string `json:"grantType"` // Always "anonymous" for visitor sessions
}

// OAuthTokenResponse contains the OAuth2 token from Wix.
// Access token is valid for 4 hours (14400 seconds).
type OAuthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// OAuthRefreshRequest is used to refresh an expired access token.
type OAuthRefreshRequest struct {
	ClientID     string `json:"clientId"`
	GrantType    string `json:"grantType"` // "refresh_token"
	RefreshToken string `json:"refreshToken"`
}

// === Stores Catalog Types ===

// WixProduct is a Stores v1 catalog product.
// Prices are JSON numbers in the catalog API; decimal decodes them exactly.
type WixProduct struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Slug           string             `json:"slug"`
	Visible        bool               `json:"visible"`
	Description    string             `json:"description,omitempty"`
	SKU            string             `json:"sku,omitempty"`
	Ribbon         string             `json:"ribbon,omitempty"`
	Stock          *WixStock          `json:"stock,omitempty"`
	PriceData      *WixPriceData      `json:"priceData,omitempty"`
	Media          *WixMedia          `json:"media,omitempty"`
	ProductOptions []WixProductOption `json:"productOptions,omitempty"`
	ManageVariants bool               `json:"manageVariants"`
	Variants       []WixVariant       `json:"variants,omitempty"`
	CollectionIDs  []string           `json:"collectionIds,omitempty"`
	LastUpdated    string             `json:"lastUpdated,omitempty"`
}

// WixStock is product or variant availability.
type WixStock struct {
	TrackInventory  bool   `json:"trackInventory"`
	TrackQuantity   bool   `json:"trackQuantity"` // variant-level name of TrackInventory
	Quantity        *int   `json:"quantity,omitempty"`
	InStock         bool   `json:"inStock"`
	InventoryStatus string `json:"inventoryStatus,omitempty"` // IN_STOCK | OUT_OF_STOCK | PARTIALLY_OUT_OF_STOCK
}

// WixPriceData holds catalog prices.
type WixPriceData struct {
	Currency        string             `json:"currency"`
	Price           *decimal.Decimal   `json:"price,omitempty"`
	DiscountedPrice *decimal.Decimal   `json:"discountedPrice,omitempty"`
	Formatted       *WixFormattedPrice `json:"formatted,omitempty"`
}

// WixFormattedPrice holds display strings for catalog prices.
type WixFormattedPrice struct {
	Price           string `json:"price,omitempty"`
	DiscountedPrice string `json:"discountedPrice,omitempty"`
}

// WixMedia groups the main media item and the gallery.
type WixMedia struct {
	MainMedia *WixMediaItem  `json:"mainMedia,omitempty"`
	Items     []WixMediaItem `json:"items,omitempty"`
}

// WixMediaItem is one image or video.
type WixMediaItem struct {
	ID        string         `json:"id,omitempty"`
	Title     string         `json:"title,omitempty"`
	MediaType string         `json:"mediaType,omitempty"` // "image" | "video"
	Image     *WixImage      `json:"image,omitempty"`
	Video     *WixVideoMedia `json:"video,omitempty"`
	Thumbnail *WixImage      `json:"thumbnail,omitempty"`
}

// WixVideoMedia wraps video files.
type WixVideoMedia struct {
	Files []WixImage `json:"files,omitempty"`
}

// WixImage represents an image (also used for cart line item images).
type WixImage struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// WixProductOption is an option such as "Size" with its choices.
type WixProductOption struct {
	OptionType string      `json:"optionType,omitempty"` // "drop_down" | "color"
	Name       string      `json:"name"`
	Choices    []WixChoice `json:"choices"`
}

// WixChoice is a single value of an option.
type WixChoice struct {
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	InStock     bool      `json:"inStock"`
	Visible     bool      `json:"visible"`
	Media       *WixMedia `json:"media,omitempty"`
}

// WixVariant is one choice-per-option combination of a variant-managed product.
type WixVariant struct {
	ID      string             `json:"id"`
	Choices map[string]string  `json:"choices"`
	Variant *WixVariantDetails `json:"variant,omitempty"`
	Stock   *WixStock          `json:"stock,omitempty"`
}

// WixVariantDetails carries variant pricing and SKU.
type WixVariantDetails struct {
	PriceData *WixPriceData `json:"priceData,omitempty"`
	SKU       string        `json:"sku,omitempty"`
	Visible   bool          `json:"visible"`
}

// WixCollection is a catalog collection (a category in storefront terms).
type WixCollection struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      string    `json:"description,omitempty"`
	NumberOfProducts int       `json:"numberOfProducts"`
	Media            *WixMedia `json:"media,omitempty"`
}

// WixQuery is the v1 query envelope. Filter and Sort are JSON strings.
type WixQuery struct {
	Filter string     `json:"filter,omitempty"`
	Sort   string     `json:"sort,omitempty"`
	Paging *WixPaging `json:"paging,omitempty"`
}

// WixPaging is offset paging.
type WixPaging struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// WixQueryProductsRequest is the body of POST /stores/v1/products/query.
type WixQueryProductsRequest struct {
	Query           WixQuery `json:"query"`
	IncludeVariants bool     `json:"includeVariants,omitempty"`
}

// WixQueryProductsResponse is the response of the products query.
type WixQueryProductsResponse struct {
	Products     []WixProduct `json:"products"`
	TotalResults int          `json:"totalResults"`
}

// WixQueryCollectionsRequest is the body of POST /stores/v1/collections/query.
type WixQueryCollectionsRequest struct {
	Query WixQuery `json:"query"`
}

// WixQueryCollectionsResponse is the response of the collections query.
type WixQueryCollectionsResponse struct {
	Collections  []WixCollection `json:"collections"`
	TotalResults int             `json:"totalResults"`
}

// WixCollectionResponse wraps a single collection.
type WixCollectionResponse struct {
	Collection *WixCollection `json:"collection"`
}

// === Wix eCommerce Cart Types ===

// WixCart represents a Wix eCommerce cart.
type WixCart struct {
	ID        string        `json:"id"`
	LineItems []WixLineItem `json:"lineItems"`
	Currency  string        `json:"currency"`
}

// WixLineItem represents an item in a Wix cart or order.
type WixLineItem struct {
	ID               string            `json:"id,omitempty"`
	CatalogReference *WixCatalogRef    `json:"catalogReference"`
	Quantity         int               `json:"quantity"`
	ProductName      *WixProductName   `json:"productName,omitempty"`
	Price            *WixPrice         `json:"price,omitempty"`
	Image            *WixImage         `json:"image,omitempty"`
	Availability     *WixAvailability  `json:"availability,omitempty"`
	TotalPrice       *WixPrice         `json:"totalPriceAfterTax,omitempty"`
	PhysicalProps    *WixPhysicalProps `json:"physicalProperties,omitempty"`
}

// WixCatalogRef identifies a product in the Wix catalog.
type WixCatalogRef struct {
	CatalogItemID string             `json:"catalogItemId"`
	AppID         string             `json:"appId"`
	Options       *WixCatalogOptions `json:"options,omitempty"`
}

// WixCatalogOptions selects the variant (variant-managed) or the option choices
// (option-managed) of a catalog reference.
type WixCatalogOptions struct {
	VariantID string            `json:"variantId,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// WixStoresAppID is the Wix Stores application ID for catalog references.
const WixStoresAppID = "215238eb-22a5-4c36-9e7b-e7c08025e04e"

// WixProductName contains localized product name.
type WixProductName struct {
	Original   string `json:"original,omitempty"`
	Translated string `json:"translated,omitempty"`
}

// WixPrice is an eCommerce price; amounts are decimal strings.
type WixPrice struct {
	Amount          string `json:"amount"`
	ConvertedAmount string `json:"convertedAmount,omitempty"`
	FormattedAmount string `json:"formattedAmount,omitempty"`
}

// WixAvailability reports line item stock.
type WixAvailability struct {
	Status string `json:"status"` // AVAILABLE | NOT_AVAILABLE | PARTIALLY_AVAILABLE
}

// WixPhysicalProps indicates if item requires shipping.
type WixPhysicalProps struct {
	ShippingRequired bool `json:"shippingRequired"`
}

// WixPriceSummary contains a cart or order pricing breakdown.
type WixPriceSummary struct {
	Subtotal *WixPrice `json:"subtotal,omitempty"`
	Shipping *WixPrice `json:"shipping,omitempty"`
	Tax      *WixPrice `json:"tax,omitempty"`
	Discount *WixPrice `json:"discount,omitempty"`
	Total    *WixPrice `json:"total,omitempty"`
}

// === Cart Request/Response Types ===

// WixAddToCartRequest is the request body for adding items to cart.
type WixAddToCartRequest struct {
	LineItems []WixLineItemInput `json:"lineItems"`
}

// WixLineItemInput is used when adding items to cart.
type WixLineItemInput struct {
	CatalogReference *WixCatalogRef `json:"catalogReference"`
	Quantity         int            `json:"quantity"`
}

// WixUpdateQuantityRequest updates quantities of existing line items.
type WixUpdateQuantityRequest struct {
	LineItems []WixQuantityUpdate `json:"lineItems"`
}

// WixQuantityUpdate specifies a quantity change for a single line item.
type WixQuantityUpdate struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// WixRemoveLineItemsRequest removes line items by ID.
type WixRemoveLineItemsRequest struct {
	LineItemIDs []string `json:"lineItemIds"`
}

// WixCartResponse wraps cart API responses.
type WixCartResponse struct {
	Cart *WixCart `json:"cart"`
}

// WixEstimateTotalsResponse is the response of estimate-totals.
type WixEstimateTotalsResponse struct {
	Currency     string           `json:"currency,omitempty"`
	PriceSummary *WixPriceSummary `json:"priceSummary"`
}

// === Checkout / Redirect Types ===

// WixCreateCheckoutResponse is the response of create-checkout.
type WixCreateCheckoutResponse struct {
	CheckoutID string `json:"checkoutId"`
}

// WixRedirectSession represents a redirect session for hosted checkout.
type WixRedirectSession struct {
	ID      string `json:"id,omitempty"`
	FullURL string `json:"fullUrl"`
}

// WixCreateRedirectRequest creates a redirect session.
type WixCreateRedirectRequest struct {
	EcomCheckout *WixEcomCheckoutRef `json:"ecomCheckout"`
	Callbacks    *WixCallbacks       `json:"callbacks,omitempty"`
}

// WixEcomCheckoutRef references a checkout for redirect.
type WixEcomCheckoutRef struct {
	CheckoutID string `json:"checkoutId"`
}

// WixCallbacks contains redirect callback URLs.
type WixCallbacks struct {
	PostFlowURL     string `json:"postFlowUrl,omitempty"`
	ThankYouPageURL string `json:"thankYouPageUrl,omitempty"`
}

// WixRedirectResponse wraps redirect session API responses.
type WixRedirectResponse struct {
	RedirectSession *WixRedirectSession `json:"redirectSession"`
}

// === Order Types ===

// WixOrder is an eCommerce order.
type WixOrder struct {
	ID           string           `json:"id"`
	Number       string           `json:"number"`
	Status       string           `json:"status"`
	BuyerInfo    *WixBuyerInfo    `json:"buyerInfo,omitempty"`
	LineItems    []WixLineItem    `json:"lineItems"`
	PriceSummary *WixPriceSummary `json:"priceSummary,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	CreatedDate  string           `json:"createdDate,omitempty"`
}

// WixBuyerInfo contains buyer identity information.
type WixBuyerInfo struct {
	Email string `json:"email,omitempty"`
}

// WixOrderResponse wraps the get-order response.
type WixOrderResponse struct {
	Order *WixOrder `json:"order"`
}

// === Errors ===

// WixErrorResponse represents a Wix API error.
type WixErrorResponse struct {
	Message string           `json:"message"`
	Details *WixErrorDetails `json:"details,omitempty"`
}

// WixErrorDetails contains additional error information.
type WixErrorDetails struct {
	ApplicationError *WixApplicationError `json:"applicationError,omitempty"`
}

// WixApplicationError contains Wix-specific error codes.
type WixApplicationError struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}
