package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marketkit/marketkit/internal/domain/cart"
)

var (
	productID    string
	productName  string
	productPrice float64
	productImage string
	productSize  string
	productColor string
	productStock int
	productWt    float64
	quantity     int
	cartItemID   string
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the cart",
}

var cartAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product to the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		item := a.cart.AddToCart(cmd.Context(), cart.Product{
			ID:                productID,
			Name:              productName,
			Price:             productPrice,
			Image:             productImage,
			Size:              productSize,
			Color:             productColor,
			AvailableQuantity: productStock,
			Weight:            productWt,
		}, quantity)

		fmt.Printf("added %s x%d (%s)\n", item.Name, item.Quantity, item.CartID)
		return nil
	},
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cart line items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		items := a.cart.Items()
		if len(items) == 0 {
			fmt.Println("cart is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CART ID\tNAME\tQTY\tPRICE\tSYNC")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\n",
				item.CartID, item.Name, item.Quantity, item.Price, item.SyncState)
		}
		return w.Flush()
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change a line item's quantity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.cart.UpdateQuantity(cmd.Context(), cartItemID, quantity)
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a line item",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.cart.RemoveFromCart(cmd.Context(), cartItemID)
		return nil
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the local cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.cart.ClearCart(cmd.Context())
		return nil
	},
}

var cartPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local cart with the server cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.cart.LoadFromServer(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("pulled %d items\n", len(items))
		return nil
	},
}

var cartPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the local cart to the server wholesale",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.cart.SaveToServer(cmd.Context())
		return nil
	},
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Mark checkout complete and empty the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.cart.CompleteCheckout(cmd.Context())
		fmt.Println("cart cleared")
		return nil
	},
}

func init() {
	cartAddCmd.Flags().StringVar(&productID, "id", "", "product id")
	cartAddCmd.Flags().StringVar(&productName, "name", "", "product name")
	cartAddCmd.Flags().Float64Var(&productPrice, "price", 0, "unit price")
	cartAddCmd.Flags().StringVar(&productImage, "image", "", "image URL")
	cartAddCmd.Flags().StringVar(&productSize, "size", "", "size variant")
	cartAddCmd.Flags().StringVar(&productColor, "color", "", "color variant")
	cartAddCmd.Flags().IntVar(&productStock, "available", 1, "available stock")
	cartAddCmd.Flags().Float64Var(&productWt, "weight", 0, "unit weight")
	cartAddCmd.Flags().IntVar(&quantity, "quantity", 1, "quantity to add")
	_ = cartAddCmd.MarkFlagRequired("id")
	_ = cartAddCmd.MarkFlagRequired("name")

	cartUpdateCmd.Flags().StringVar(&cartItemID, "cart-id", "", "line item cart id")
	cartUpdateCmd.Flags().IntVar(&quantity, "quantity", 1, "new quantity")
	_ = cartUpdateCmd.MarkFlagRequired("cart-id")
	_ = cartUpdateCmd.MarkFlagRequired("quantity")

	cartRemoveCmd.Flags().StringVar(&cartItemID, "cart-id", "", "line item cart id")
	_ = cartRemoveCmd.MarkFlagRequired("cart-id")

	cartCmd.AddCommand(cartAddCmd, cartListCmd, cartUpdateCmd, cartRemoveCmd,
		cartClearCmd, cartPullCmd, cartPushCmd, cartCheckoutCmd)
	rootCmd.AddCommand(cartCmd)
}
