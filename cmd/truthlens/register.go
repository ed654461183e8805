package main

import (
	"github.com/spf13/cobra"

	"github.com/truthlens/truthlens-cli/internal/authflow"
	errs "github.com/truthlens/truthlens-cli/internal/errors"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a TruthLens account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			firstName, err := promptLine("First name: ")
			if err != nil {
				return err
			}

			lastName, err := promptLine("Last name: ")
			if err != nil {
				return err
			}

			email, err := promptLine("Email: ")
			if err != nil {
				return err
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}

			if password != confirm {
				return errs.ErrPasswordMismatch
			}

			outcome, err := a.flow.Register(cmd.Context(), authflow.Registration{
				FirstName: firstName,
				LastName:  lastName,
				Email:     email,
				Password:  password,
			})
			if err != nil {
				return err
			}

			return reportOutcome(outcome)
		},
	}
}
