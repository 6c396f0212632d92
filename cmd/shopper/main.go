// shopper is a CLI for exercising the storefront API from a terminal.
// Each command performs a single operation, making it composable for scripts.
// The session header the server hands out is saved between runs, so
// consecutive commands share one cart.
//
// Examples:
//
//	shopper products --limit 5
//	shopper product classic-tee
//	shopper add classic-tee --choice Size=M --qty 2
//	shopper cart
//	shopper checkout
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s✗ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

// options holds global flags for all commands.
type options struct {
	Server      string
	SessionFile string
	Quiet       bool
	Verbose     bool
	NoColor     bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "shopper",
		Short: "shopper - storefront API test tool",
		Long:  "Browse the catalog, build a cart and start checkout against a running storefront server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.NoColor {
				disableColors()
			}
			if opts.Server == "" {
				return fmt.Errorf("--server must not be empty")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("STOREFRONT_URL", "http://localhost:8080"), "storefront base URL")
	cmd.PersistentFlags().StringVar(&opts.SessionFile, "session-file", defaultSessionFile(), "file the session header is kept in")
	cmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "only print the essential value")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "show full request/response")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newProductsCommand(opts))
	cmd.AddCommand(newProductCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newCartCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newCheckoutCommand(opts))
	cmd.AddCommand(newResetCommand(opts))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
