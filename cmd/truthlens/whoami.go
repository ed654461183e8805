package main

import (
	"fmt"

	"github.com/spf13/cobra"

	errs "github.com/truthlens/truthlens-cli/internal/errors"
	"github.com/truthlens/truthlens-cli/internal/session"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			validator := session.NewValidator(a.store, a.client, a.logger)
			gate := session.NewGate(validator, a.logger)

			decision, err := gate.Enter(cmd.Context())
			if err != nil {
				return err
			}

			if decision.State != session.StateAuthenticated {
				if decision.SessionExpired {
					return fmt.Errorf("session expired, please sign in again")
				}

				return errs.ErrNoCredential
			}

			profile := decision.Profile
			fmt.Printf("Username:  %s\n", profile.Username)
			fmt.Printf("Email:     %s\n", profile.Email)

			if name := profile.DisplayName(); name != "" {
				fmt.Printf("Name:      %s\n", name)
			}

			if profile.PhoneNumber != "" {
				fmt.Printf("Phone:     %s\n", profile.PhoneNumber)
			}

			return nil
		},
	}
}
