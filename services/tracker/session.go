package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"mhrs-tracker/internal/components/chrono"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SessionManager exchanges credentials for a new token after the old one
// was rejected.
type SessionManager struct {
	api     API
	sleeper chrono.Sleeper
	rng     Random
	policy  Policy
}

func NewSessionManager(api API, sleeper chrono.Sleeper, rng Random, policy Policy) SessionManager {
	return SessionManager{api: api, sleeper: sleeper, rng: rng, policy: policy.WithDefaults()}
}

// Refresh tries to log in up to policy.RefreshAttempts times, waiting a
// random RefreshJitterMin..RefreshJitterMax between attempts. It fails with
// ErrNoCredentials without any attempt when creds are missing and with
// ErrSessionExhausted once every attempt failed.
func (m SessionManager) Refresh(ctx context.Context, creds *Credentials) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionManager:Refresh")
	defer span.End()

	if !creds.usable() {
		span.SetStatus(codes.Error, ErrNoCredentials.Error())
		return "", ErrNoCredentials
	}

	var lastErr error
	for attempt := 1; attempt <= m.policy.RefreshAttempts; attempt++ {
		span.SetAttributes(attribute.Int("attempt", attempt))

		token, err := m.api.Login(ctx, creds.Identity, creds.Secret)
		if err == nil {
			refreshCounter.Add(ctx, 1)
			return token, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = fmt.Errorf("%w: %w", ErrAuthFailure, err)
		slog.WarnContext(ctx, "login attempt failed", "attempt", attempt, "err", err)

		if attempt == m.policy.RefreshAttempts {
			break
		}
		err = m.sleeper.Sleep(ctx, uniformSeconds(m.rng, m.policy.RefreshJitterMin, m.policy.RefreshJitterMax))
		if err != nil {
			return "", err
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, ErrSessionExhausted.Error())
	return "", fmt.Errorf("%w after %d attempts: %w", ErrSessionExhausted, m.policy.RefreshAttempts, lastErr)
}
