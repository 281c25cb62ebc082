package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketkit/marketkit/internal/domain/session"
)

var (
	authEmail    string
	authPassword string
	authName     string
	authOTP      string
	authNewPass  string
	redirectTo   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and merge the guest cart with the server cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if redirectTo != "" {
			a.session.SetRedirectTarget(&session.RedirectTarget{Target: redirectTo})
		}

		user, err := a.session.SignIn(cmd.Context(), session.Credentials{
			Email:    authEmail,
			Password: authPassword,
		})
		if err != nil {
			return err
		}
		a.cart.SyncAfterLogin(cmd.Context())

		fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
		if target := a.session.ConsumeRedirectTarget(); target != nil {
			fmt.Printf("resume at: %s\n", target.Target)
		}
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.session.SignUp(cmd.Context(), session.Registration{
			Name:     authName,
			Email:    authEmail,
			Password: authPassword,
		})
		if err != nil {
			return err
		}
		a.cart.SyncAfterLogin(cmd.Context())

		fmt.Printf("account created for %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		// Cart first: clearing while still authenticated skips a pointless
		// guest-cache write.
		a.cart.ClearCart(cmd.Context())
		a.session.SignOut(cmd.Context())

		fmt.Println("signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if user := a.session.User(); user != nil {
			fmt.Printf("%s <%s>\n", user.Name, user.Email)
		} else {
			fmt.Println("guest")
		}
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset OTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.RequestPasswordReset(cmd.Context(), authEmail); err != nil {
			return err
		}
		fmt.Println("reset OTP sent")
		return nil
	},
}

var verifyOtpCmd = &cobra.Command{
	Use:   "verify-otp",
	Short: "Verify a password reset OTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.VerifyOTP(cmd.Context(), authEmail, authOTP); err != nil {
			return err
		}
		fmt.Println("OTP verified")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a verified OTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.ResetPassword(cmd.Context(), authEmail, authOTP, authNewPass); err != nil {
			return err
		}
		fmt.Println("password reset")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "account password")
	loginCmd.Flags().StringVar(&redirectTo, "redirect-to", "", "destination to resume after sign-in")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	signupCmd.Flags().StringVar(&authName, "name", "", "display name")
	signupCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	signupCmd.Flags().StringVar(&authPassword, "password", "", "account password")
	_ = signupCmd.MarkFlagRequired("name")
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("password")

	forgotPasswordCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	_ = forgotPasswordCmd.MarkFlagRequired("email")

	verifyOtpCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	verifyOtpCmd.Flags().StringVar(&authOTP, "otp", "", "one-time password from the reset email")
	_ = verifyOtpCmd.MarkFlagRequired("email")
	_ = verifyOtpCmd.MarkFlagRequired("otp")

	resetPasswordCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	resetPasswordCmd.Flags().StringVar(&authOTP, "otp", "", "verified one-time password")
	resetPasswordCmd.Flags().StringVar(&authNewPass, "new-password", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("otp")
	_ = resetPasswordCmd.MarkFlagRequired("new-password")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd,
		forgotPasswordCmd, verifyOtpCmd, resetPasswordCmd)
}
