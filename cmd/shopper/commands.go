package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storefront/internal/model"
)

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func newProductsCommand(opts *options) *cobra.Command {
	var (
		limit    int
		category string
		sort     string
	)

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products, optionally from one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/products"
			if category != "" {
				path = "/categories/" + url.PathEscape(category) + "/products"
				if sort != "" {
					q.Set("sort", sort)
				}
			}
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var page model.ProductPage
			if err := doRequest(opts, "GET", path, nil, &page); err != nil {
				return err
			}
			for _, p := range page.Items {
				if opts.Quiet {
					fmt.Println(p.Slug)
					continue
				}
				fmt.Printf("  %s%-28s%s %-32s %s\n", colorCyan, p.Slug, colorReset, p.Name, formatMoney(p.DiscountedPrice, p.Price))
			}
			printSuccess(opts, "%d of %d products", len(page.Items), page.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of products")
	cmd.Flags().StringVar(&category, "category", "", "category slug")
	cmd.Flags().StringVar(&sort, "sort", "", "price_asc, price_desc, name_asc, name_desc or newest (with --category)")

	return cmd
}

// productView mirrors the fields of the product page the CLI prints.
type productView struct {
	Product  model.Product `json:"product"`
	Resolved struct {
		Complete   bool     `json:"complete"`
		Missing    []string `json:"missing"`
		SKU        string   `json:"sku"`
		OutOfStock bool     `json:"out_of_stock"`
		Price      struct {
			Price      model.Money `json:"price"`
			Discounted model.Money `json:"discounted_price"`
		} `json:"price"`
	} `json:"resolved"`
	Options []struct {
		Name    string `json:"name"`
		Choices []struct {
			Value      string `json:"value"`
			Selected   bool   `json:"selected"`
			Selectable bool   `json:"selectable"`
		} `json:"choices"`
	} `json:"options"`
	InCartLineID string `json:"in_cart_line_id"`
}

func newProductCommand(opts *options) *cobra.Command {
	var choices []string

	cmd := &cobra.Command{
		Use:   "product <slug>",
		Short: "Show a product and resolve an option selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseChoices(choices)
			if err != nil {
				return err
			}

			var view productView
			path := "/products/" + url.PathEscape(args[0])
			if len(sel) > 0 {
				err = doRequest(opts, "POST", path+"/selection", map[string]interface{}{"choices": sel}, &view)
			} else {
				err = doRequest(opts, "GET", path, nil, &view)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s%s%s  %s\n", colorBold, view.Product.Name, colorReset, formatMoney(view.Resolved.Price.Discounted, view.Resolved.Price.Price))
			for _, o := range view.Options {
				var parts []string
				for _, c := range o.Choices {
					label := c.Value
					switch {
					case c.Selected:
						label = colorGreen + "[" + c.Value + "]" + colorReset
					case !c.Selectable:
						label = colorGray + c.Value + colorReset
					}
					parts = append(parts, label)
				}
				fmt.Printf("  %-12s %s\n", o.Name+":", strings.Join(parts, " "))
			}
			switch {
			case !view.Resolved.Complete:
				fmt.Printf("  %sselect: %s%s\n", colorYellow, strings.Join(view.Resolved.Missing, ", "), colorReset)
			case view.Resolved.OutOfStock:
				fmt.Printf("  %sout of stock%s\n", colorRed, colorReset)
			default:
				fmt.Printf("  SKU %s\n", view.Resolved.SKU)
			}
			if view.InCartLineID != "" {
				fmt.Printf("  %sin cart (line %s)%s\n", colorGray, view.InCartLineID, colorReset)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&choices, "choice", nil, "option choice as Name=Value (repeatable)")

	return cmd
}

// =============================================================================
// CART COMMANDS
// =============================================================================

func newAddCommand(opts *options) *cobra.Command {
	var (
		choices  []string
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "add <slug>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseChoices(choices)
			if err != nil {
				return err
			}

			var c model.Cart
			err = doRequest(opts, "POST", "/cart/items", map[string]interface{}{
				"product_slug": args[0],
				"quantity":     quantity,
				"choices":      sel,
			}, &c)
			if err != nil {
				return err
			}

			printSuccess(opts, "Added %d × %s", quantity, args[0])
			printCart(opts, c)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&choices, "choice", nil, "option choice as Name=Value (repeatable)")
	cmd.Flags().IntVar(&quantity, "qty", 1, "quantity")

	return cmd
}

func newCartCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap struct {
				Cart *model.Cart `json:"cart"`
			}
			if err := doRequest(opts, "GET", "/cart", nil, &snap); err != nil {
				return err
			}
			if snap.Cart == nil || len(snap.Cart.LineItems) == 0 {
				printSuccess(opts, "Cart is empty")
				return nil
			}
			printCart(opts, *snap.Cart)
			printSuccess(opts, "%d items", snap.Cart.Quantity())

			var totals model.CartTotals
			if err := doRequest(opts, "GET", "/cart/totals", nil, &totals); err != nil {
				printWarning("totals unavailable: %v", err)
				return nil
			}
			if !opts.Quiet {
				fmt.Printf("  %-10s %s\n", "Subtotal", formatMoney(totals.Subtotal))
				if !totals.Discount.IsZero() {
					fmt.Printf("  %-10s -%s\n", "Discount", formatMoney(totals.Discount))
				}
				fmt.Printf("  %-10s %s\n", "Shipping", formatMoney(totals.Shipping))
				fmt.Printf("  %-10s %s\n", "Tax", formatMoney(totals.Tax))
				fmt.Printf("  %s%-10s %s%s\n", colorBold, "Total", formatMoney(totals.Total), colorReset)
			}
			return nil
		},
	}
}

func newRemoveCommand(opts *options) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "remove <line-item-id>",
		Short: "Remove a cart line, or set its quantity with --qty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c model.Cart
			path := "/cart/items/" + url.PathEscape(args[0])
			var err error
			if cmd.Flags().Changed("qty") {
				err = doRequest(opts, "PATCH", path, map[string]int{"quantity": quantity}, &c)
			} else {
				err = doRequest(opts, "DELETE", path, nil, &c)
			}
			if err != nil {
				return err
			}
			if li, ok := c.LineItem(args[0]); ok {
				printSuccess(opts, "%s now × %d", li.Name, li.Quantity)
			} else {
				printSuccess(opts, "Line %s removed", args[0])
			}
			printCart(opts, c)
			return nil
		},
	}

	cmd.Flags().IntVar(&quantity, "qty", 0, "new quantity instead of removing")

	return cmd
}

func newCheckoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Start hosted checkout and print the redirect URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				ID          string `json:"id"`
				RedirectURL string `json:"redirect_url"`
			}
			if err := doRequest(opts, "POST", "/checkout", nil, &resp); err != nil {
				return err
			}
			if opts.Quiet {
				fmt.Println(resp.RedirectURL)
				return nil
			}
			printSuccess(opts, "Checkout ready")
			fmt.Printf("  URL: %s%s%s\n", colorCyan, resp.RedirectURL, colorReset)
			return nil
		},
	}
}

func newResetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved session and start a new cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.Remove(opts.SessionFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing session file: %w", err)
			}
			printSuccess(opts, "Session cleared")
			return nil
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// parseChoices turns Name=Value flags into a choice map.
func parseChoices(raw []string) (map[string]string, error) {
	choices := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --choice %q: want Name=Value", kv)
		}
		choices[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return choices, nil
}

func printCart(opts *options, c model.Cart) {
	for _, li := range c.LineItems {
		if opts.Quiet {
			fmt.Println(li.ID)
			continue
		}
		fmt.Printf("  %s%-12s%s %3d × %-32s %10s %10s\n", colorGray, li.ID, colorReset, li.Quantity, li.Name,
			formatMoney(li.Price), formatMoney(li.Price.Mul(li.Quantity)))
	}
}

// formatMoney prints the first non-zero amount, preferring the formatted
// string the platform supplied.
func formatMoney(amounts ...model.Money) string {
	for _, m := range amounts {
		if m.IsZero() {
			continue
		}
		if m.Formatted != "" {
			return m.Formatted
		}
		return strings.TrimSpace(m.Amount.StringFixed(2) + " " + m.Currency)
	}
	return "0.00"
}
