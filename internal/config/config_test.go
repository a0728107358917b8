package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Rota.Activities) == 0 {
		t.Fatal("default config has no activities")
	}
	found := false
	for _, p := range cfg.RBAC.Roles["rota-editor"].Permissions {
		if p == "rota.edit" {
			found = true
		}
	}
	if !found {
		t.Fatal("rota-editor must grant rota.edit")
	}
	if !cfg.HasDayType("Training") || cfg.HasDayType("Nap") {
		t.Fatal("day types not honoured")
	}
	if !cfg.HasProjectStatus("active") || cfg.HasProjectStatus("exploded") {
		t.Fatal("project statuses not honoured")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no roles", "rota:\n  activities: []\n", "rbac.roles is required"},
		{"no admin", "rbac:\n  roles:\n    staff: {permissions: []}\n", "must include admin"},
		{"empty permission", "rbac:\n  roles:\n    admin: {permissions: ['']}\n", "empty permission"},
		{"duplicate activity", "rbac:\n  roles:\n    admin: {}\nrota:\n  activities:\n    - name: A\n    - name: A\n", "declared twice"},
		{"blank activity", "rbac:\n  roles:\n    admin: {}\nrota:\n  activities:\n    - name: ' '\n", "empty name"},
		{"bad yaml", "rbac: [", "invalid config yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.RBAC.Roles) != len(Default().RBAC.Roles) {
		t.Fatal("expected default roles")
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load should fail without a config file")
	}
	custom := "rbac:\n  roles:\n    admin:\n      permissions: [rota.edit]\nrota:\n  activities:\n    - name: Nights\n"
	if err := os.WriteFile(filepath.Join(dir, "rotaline.yml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Rota.Activities) != 1 || cfg.Rota.Activities[0].Name != "Nights" {
		t.Fatalf("unexpected activities %+v", cfg.Rota.Activities)
	}
	if perms := cfg.Permissions(); len(perms) != 1 || perms[0] != "rota.edit" {
		t.Fatalf("permissions = %v", perms)
	}
	fromFile, err := FromFile(Path(dir))
	if err != nil || len(fromFile.Rota.Activities) != 1 {
		t.Fatalf("FromFile = %+v, %v", fromFile, err)
	}
	if _, err := FromFile(filepath.Join(dir, "missing.yml")); !os.IsNotExist(err) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}
