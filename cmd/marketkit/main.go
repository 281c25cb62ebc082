// Command marketkit is the developer CLI for the MarketKit storefront
// client core: session, cart, and wishlist operations against a storefront
// backend.
package main

import "github.com/marketkit/marketkit/cmd/marketkit/cmd"

func main() {
	cmd.Execute()
}
