package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models rotaline.yml.
type Config struct {
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles" json:"roles"`
	} `yaml:"rbac" json:"rbac"`
	Rota struct {
		Activities []Activity `yaml:"activities" json:"activities"`
		DayTypes   []string   `yaml:"day_types" json:"day_types"`
	} `yaml:"rota" json:"rota"`
	Projects struct {
		Statuses []string `yaml:"statuses" json:"statuses"`
	} `yaml:"projects" json:"projects"`
}

type RBACRole struct {
	Description string   `yaml:"description" json:"description"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

type Activity struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with rl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to the default config when the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.RBAC.Roles) == 0 {
		return fmt.Errorf("config.rbac.roles is required")
	}
	if _, ok := c.RBAC.Roles["admin"]; !ok {
		return fmt.Errorf("config.rbac.roles must include admin")
	}
	for roleID, role := range c.RBAC.Roles {
		if strings.TrimSpace(roleID) == "" {
			return fmt.Errorf("config.rbac.roles contains empty role id")
		}
		for _, perm := range role.Permissions {
			if strings.TrimSpace(perm) == "" {
				return fmt.Errorf("role %s has empty permission id", roleID)
			}
		}
	}
	seen := map[string]bool{}
	for i, a := range c.Rota.Activities {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return fmt.Errorf("config.rota.activities[%d] has empty name", i)
		}
		if seen[name] {
			return fmt.Errorf("rota activity %q declared twice", name)
		}
		seen[name] = true
	}
	for i, dt := range c.Rota.DayTypes {
		if strings.TrimSpace(dt) == "" {
			return fmt.Errorf("config.rota.day_types[%d] is empty", i)
		}
	}
	return nil
}

// HasDayType reports whether dt is a configured engineering day type. An empty list
// accepts any type.
func (c *Config) HasDayType(dt string) bool {
	if len(c.Rota.DayTypes) == 0 {
		return true
	}
	for _, known := range c.Rota.DayTypes {
		if known == dt {
			return true
		}
	}
	return false
}

// HasProjectStatus reports whether status is allowed for projects.
func (c *Config) HasProjectStatus(status string) bool {
	if len(c.Projects.Statuses) == 0 {
		return true
	}
	for _, s := range c.Projects.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Permissions lists every permission referenced by any role.
func (c *Config) Permissions() []string {
	seen := map[string]bool{}
	var perms []string
	for _, role := range c.RBAC.Roles {
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	return perms
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "rotaline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the parsed default config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `rbac:
  roles:
    admin:
      description: "Full administrative access"
      permissions: [rota.edit, project.create, project.admin, directory.admin]
    rota-editor:
      description: "May assign rota shifts"
      permissions: [rota.edit]
    project-manager:
      description: "May create projects"
      permissions: [project.create]
    staff:
      description: "Regular staff member"
      permissions: []

rota:
  activities:
    - name: "Infrastructure Early"
      description: "07:00 - 15:00 infrastructure cover"
    - name: "Infrastructure Mid"
      description: "09:00 - 17:00 infrastructure cover"
    - name: "Infrastructure Late"
      description: "12:00 - 20:00 infrastructure cover"
    - name: "On Call"
      description: "Out of hours on-call"
    - name: "Leave"
      description: "Annual leave"
    - name: "Training"
      description: "Training course"
  day_types: [Full Day, AM, PM, Training]

projects:
  statuses: [proposed, active, on_hold, closed]
`
