package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/truthlens/truthlens-cli/internal/authflow"
	"github.com/truthlens/truthlens-cli/internal/config"
	"github.com/truthlens/truthlens-cli/internal/logging"
	"github.com/truthlens/truthlens-cli/internal/models"
	"github.com/truthlens/truthlens-cli/internal/session"
	"github.com/truthlens/truthlens-cli/internal/truthlens"
)

// app holds the wired-up pieces every command needs: configuration, the
// API client, the durable session store, and the flow orchestrator.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	client *truthlens.Client
	flow   *authflow.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	store, err := session.Open(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	client := truthlens.NewClient(cfg.APIURL, nil)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		client: client,
		flow:   authflow.New(client, store, logger),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing session store", "error", err)
	}
}

// promptLine reads one trimmed line from stdin, labelling the prompt on
// stderr so piped stdout stays clean.
func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("no input")
	}

	return strings.TrimSpace(scanner.Text()), nil
}

// promptPassword reads a password line verbatim. Passwords are never
// trimmed: leading or trailing spaces are part of the secret.
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("no input")
	}

	return scanner.Text(), nil
}

// reportOutcome prints the result of an authentication attempt. A
// rejection or network failure becomes the command's error.
func reportOutcome(outcome models.AuthOutcome) error {
	switch outcome.Kind {
	case models.OutcomeAuthenticated:
		if name := outcome.Profile.DisplayName(); name != "" {
			fmt.Printf("Signed in as %s.\n", name)
		} else if outcome.Profile.Username != "" {
			fmt.Printf("Signed in as %s.\n", outcome.Profile.Username)
		} else {
			fmt.Println("Signed in.")
		}

		return nil
	case models.OutcomeRegistered:
		fmt.Println("Account created. Please verify your email to log in.")

		return nil
	case models.OutcomeRejected:
		return fmt.Errorf("%s", outcome.Reason)
	default:
		return fmt.Errorf("could not reach the TruthLens API")
	}
}
