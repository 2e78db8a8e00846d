package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/tidaldj/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser consent flow and prints the signed-in profile.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	r.logger.Info("starting consent flow", "service", r.tidal.Name())

	profile, err := r.tidal.SignIn(ctx)
	if err != nil {
		var denied *shared.DeniedError
		switch {
		case errors.As(err, &denied):
			return fmt.Errorf("sign in was declined: %w", err)
		case errors.Is(err, shared.ErrAuthCancelled):
			r.logger.Warn("sign in cancelled")
			return nil
		default:
			return fmt.Errorf("sign in failed: %w", err)
		}
	}

	r.writePlain("✓ Signed in to %s\n", r.tidal.Name())
	if profile != nil {
		r.writePlain("Account: %s\n", profile.DisplayName())
	}
	return nil
}

// AuthStatus reports whether a session is held and which account owns it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	if !r.tidal.IsAuthenticated() {
		return r.writePlain("✗ Not signed in\n")
	}

	profile, err := r.tidal.Profile(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return r.writePlain("✗ Not signed in\n")
		}
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}

	r.writePlain("✓ Signed in to %s\n", r.tidal.Name())
	r.writePlain("Account: %s\n", profile.DisplayName())
	if profile.Email != "" {
		r.writePlain("Email: %s\n", profile.Email)
	}
	if profile.CountryCode != "" {
		r.writePlain("Country: %s\n", profile.CountryCode)
	}
	return nil
}

// AuthLogout revokes and clears the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	if !r.tidal.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	if err := r.tidal.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}

	return r.writePlain("✓ Signed out\n")
}
