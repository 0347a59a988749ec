package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"hourglass/internal/config"
	"hourglass/internal/engine"
	"hourglass/internal/repo"
)

// ResolveConfig loads hourglass.yml from the workspace, writing the
// default file first when none exists.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	path := config.Path(workspace)
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	return config.Default(), nil
}

// ResolveUser finds the acting user for local CLI commands by email,
// registering them with a throwaway password when they do not exist yet.
// Local single-machine use only; the HTTP API always authenticates.
func ResolveUser(ctx context.Context, e engine.Engine, email string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("user not specified; use --user or HOURGLASS_USER")
	}
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return 0, err
	}
	created, err := e.RegisterUser(ctx, email, email, randomLocalPassword())
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func randomLocalPassword() string {
	return "local-" + uuid.NewString()
}
