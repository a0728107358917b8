package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"rotaline/internal/config"
	"rotaline/internal/db"
	"rotaline/internal/domain"
	"rotaline/internal/engine"
	"rotaline/internal/migrate"
	"rotaline/internal/repo"
)

// Open opens the workspace database, applies migrations, loads rotaline.yml (or the
// default config) and seeds roles and activities from it.
func Open(ctx context.Context, workspace string, logger *slog.Logger) (engine.Engine, func() error, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	if err := SeedFromConfig(ctx, repo.Repo{DB: conn}, cfg); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("seed: %w", err)
	}
	return engine.New(conn, cfg, logger), conn.Close, nil
}

// SeedFromConfig mirrors the configured roles, permissions and activity catalog into the
// database. Role grants are replaced; activities are only added.
func SeedFromConfig(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, perm := range cfg.Permissions() {
		if err := r.InsertPermission(ctx, tx, perm, ""); err != nil {
			return fmt.Errorf("permission %s: %w", perm, err)
		}
	}
	roleIDs := make([]string, 0, len(cfg.RBAC.Roles))
	for id := range cfg.RBAC.Roles {
		roleIDs = append(roleIDs, id)
	}
	sort.Strings(roleIDs)
	for _, id := range roleIDs {
		role := cfg.RBAC.Roles[id]
		if err := r.InsertRole(ctx, tx, id, role.Description); err != nil {
			return fmt.Errorf("role %s: %w", id, err)
		}
		if err := r.ClearRolePermissions(ctx, tx, id); err != nil {
			return err
		}
		for _, perm := range role.Permissions {
			if err := r.AddRolePermission(ctx, tx, id, perm); err != nil {
				return fmt.Errorf("role %s permission %s: %w", id, perm, err)
			}
		}
	}
	for _, a := range cfg.Rota.Activities {
		if _, err := r.EnsureActivity(ctx, tx, domain.RotaActivity{Name: a.Name, Description: a.Description}); err != nil {
			return fmt.Errorf("activity %s: %w", a.Name, err)
		}
	}
	return tx.Commit()
}

// EnsureAdmin creates the named admin user with the admin role when missing. It returns
// true when a user was created.
func EnsureAdmin(ctx context.Context, e engine.Engine, username, password string) (bool, error) {
	_, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	_, err = e.CreateUser(ctx, engine.UserCreateOptions{
		Username:  username,
		FirstName: "Administrator",
		Password:  password,
		Roles:     []string{"admin"},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
