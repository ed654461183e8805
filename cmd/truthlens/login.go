package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/truthlens/truthlens-cli/internal/callback"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in with email and password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var identifier string
			if len(args) == 1 {
				identifier = args[0]
			} else if identifier, err = promptLine("Email: "); err != nil {
				return err
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			outcome, err := a.flow.Login(cmd.Context(), identifier, password)
			if err != nil {
				return err
			}

			return reportOutcome(outcome)
		},
	}

	cmd.AddCommand(loginGithubCmd(), loginGoogleCmd())

	return cmd
}

func loginGithubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "github",
		Short: "Sign in through GitHub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.cfg.RequireGitHub(); err != nil {
				return err
			}

			server, err := callback.NewServer(a.cfg.GitHubRedirectURL, a.flow, a.logger)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Open this URL in your browser to continue:")
			fmt.Fprintln(cmd.ErrOrStderr(), "  "+callback.ConsentURL(a.cfg.GitHubClientID, server.URL()))

			outcome, err := server.Run(cmd.Context())
			if err != nil {
				return err
			}

			return reportOutcome(outcome)
		},
	}
}

func loginGoogleCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google ID token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if token == "" {
				if token, err = promptLine("Google ID token: "); err != nil {
					return err
				}
			}

			outcome, err := a.flow.ExchangeGoogleToken(cmd.Context(), token)
			if err != nil {
				return err
			}

			return reportOutcome(outcome)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Google ID token from the provider")

	return cmd
}
