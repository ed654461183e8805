package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/truthlens/truthlens-cli/internal/authflow"
)

func forgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password [email]",
		Short: "Request a password reset email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var email string
			if len(args) == 1 {
				email = args[0]
			} else if email, err = promptLine("Email: "); err != nil {
				return err
			}

			recovery := authflow.NewRecovery(a.client, a.logger, "")
			if err := recovery.RequestReset(cmd.Context(), email); err != nil {
				return err
			}

			fmt.Println("If that address has an account, a reset email is on the way.")

			return nil
		},
	}
}

func resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <ticket>",
		Short: "Set a new password using a reset ticket",
		Long: `Set a new password using the reset ticket from the email sent by
forgot-password. An expired or already-used ticket is refused; request
a fresh one with forgot-password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			newPassword, err := promptPassword("New password: ")
			if err != nil {
				return err
			}

			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}

			recovery := authflow.NewRecovery(a.client, a.logger, args[0])
			if err := recovery.RedeemReset(cmd.Context(), newPassword, confirm); err != nil {
				return err
			}

			fmt.Println("Password updated. You can now sign in.")

			return nil
		},
	}
}
