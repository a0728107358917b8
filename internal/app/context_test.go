package app

import (
	"context"
	"os"
	"testing"

	"rotaline/internal/config"
	"rotaline/internal/engine/auth"
)

func TestOpenSeedsConfigAndAdmin(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()
	custom := "rbac:\n  roles:\n    admin:\n      permissions: [rota.edit, directory.admin]\n    night-shift:\n      permissions: []\nrota:\n  activities:\n    - name: Nights\n      description: 22:00 - 06:00\n"
	if err := os.WriteFile(config.Path(workspace), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	e, closeFn, err := Open(ctx, workspace, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	acts, err := e.Repo.ListActivities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts) != 1 || acts[0].Name != "Nights" || acts[0].Description != "22:00 - 06:00" {
		t.Fatalf("activities = %+v", acts)
	}
	if ok, err := e.Repo.RoleExists(ctx, nil, "night-shift"); err != nil || !ok {
		t.Fatalf("night-shift role missing: %v", err)
	}

	created, err := EnsureAdmin(ctx, e, "root", "s3cret")
	if err != nil || !created {
		t.Fatalf("first EnsureAdmin = %v, %v", created, err)
	}
	created, err = EnsureAdmin(ctx, e, "root", "other")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin = %v, %v", created, err)
	}
	root, err := e.Authenticate(ctx, "root", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Auth.UserHasPermission(ctx, nil, root.ID, auth.PermRotaEdit)
	if err != nil || !ok {
		t.Fatalf("admin lacks rota.edit: %v", err)
	}
	ok, err = e.Auth.UserHasPermission(ctx, nil, root.ID, auth.PermProjectCreate)
	if err != nil || ok {
		t.Fatalf("admin gained project.create not granted by config: %v", err)
	}
}

func TestSeedFromConfigReplacesRoleGrants(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()
	e, closeFn, err := Open(ctx, workspace, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, err := EnsureAdmin(ctx, e, "admin", "pw"); err != nil {
		t.Fatal(err)
	}
	admin, err := e.Repo.GetUserByUsername(ctx, nil, "admin")
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Auth.UserHasPermission(ctx, nil, admin.ID, auth.PermProjectCreate); !ok {
		t.Fatal("default admin should create projects")
	}

	narrowed, err := config.FromYAML([]byte("rbac:\n  roles:\n    admin:\n      permissions: [rota.edit]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := SeedFromConfig(ctx, e.Repo, narrowed); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Auth.UserHasPermission(ctx, nil, admin.ID, auth.PermProjectCreate); ok {
		t.Fatal("reseeding should drop project.create from admin")
	}
	acts, err := e.Repo.ListActivities(ctx)
	if err != nil || len(acts) != len(config.Default().Rota.Activities) {
		t.Fatalf("activities must only be added, got %d (%v)", len(acts), err)
	}
}
