package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format, development uses human-readable text.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// CredentialDigest returns a loggable attribute identifying a session
// credential without revealing it: the first 8 hex chars of its SHA-256.
// Raw credentials must never appear in log output.
func CredentialDigest(credential string) slog.Attr {
	if credential == "" {
		return slog.String("credential", "none")
	}

	h := sha256.Sum256([]byte(credential))

	return slog.String("credential", hex.EncodeToString(h[:])[:8])
}
