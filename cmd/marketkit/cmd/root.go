// Package cmd provides the CLI commands for MarketKit.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marketkit/marketkit/internal/config"
)

var cfgFile string
var storePath string

var rootCmd = &cobra.Command{
	Use:   "marketkit",
	Short: "MarketKit - storefront client core",
	Long: `MarketKit is the client-side core of a mobile storefront: session,
cart reconciliation, and wishlist, backed by durable local storage for
guests and a REST backend for signed-in users.

Quick start:
  1. Point at a backend: export MARKETKIT_API_BASE_URL=https://api.example.com
  2. Browse as a guest: marketkit cart add --id p1 --name "Shirt" --price 19.99 --available 5
  3. Sign in and merge:  marketkit login --email you@example.com --password secret

Configuration:
  Config is loaded from marketkit.yaml in the current directory,
  $HOME/.marketkit/, or /etc/marketkit/.

  Environment variables can override config values with the MARKETKIT_ prefix.
  Example: MARKETKIT_STORAGE_DRIVER=sqlite

Commands:
  login            Sign in and merge the guest cart with the server cart
  signup           Create an account
  logout           Sign out and clear the cart
  whoami           Print the current session
  forgot-password  Request a password reset OTP
  verify-otp       Verify a password reset OTP
  reset-password   Set a new password with a verified OTP
  cart             Manage the cart (add, list, update, remove, clear, pull, push, checkout)
  wishlist         Manage favorites (add, remove, list)
  config           Inspect the effective configuration
  version          Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./marketkit.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "path to the local store (default: ~/.marketkit/store.json)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
