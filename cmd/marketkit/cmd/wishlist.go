package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Manage favorites",
}

var wishlistAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Mark a product as a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.wishlist.Add(cmd.Context(), args[0])
		return nil
	},
}

var wishlistRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Unmark a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.wishlist.Remove(cmd.Context(), args[0])
		return nil
	},
}

var wishlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally cached favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ids := a.wishlist.List(cmd.Context())
		if len(ids) == 0 {
			fmt.Println("no favorites")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	wishlistCmd.AddCommand(wishlistAddCmd, wishlistRemoveCmd, wishlistListCmd)
	rootCmd.AddCommand(wishlistCmd)
}
