package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"ortholine/internal/domain"
)

// Modules that carry CRUD/print rights in the presentation layer.
var Modules = []string{"orders", "personal_files", "invoices", "directions", "materials", "reports"}

// NavigationAreas that a role may see.
var NavigationAreas = []string{"dashboard", "orders", "personal_files", "invoices", "directions", "materials", "reports", "notifications", "print_blanks"}

// Config models ortholine.yml.
type Config struct {
	Lang    domain.Lang                `yaml:"lang" json:"lang"`
	Roles   map[domain.Role]RoleConfig `yaml:"roles" json:"roles"`
	Urgency struct {
		ThresholdDays   int             `yaml:"threshold_days" json:"threshold_days"`
		PendingStatuses []domain.Status `yaml:"pending_statuses" json:"pending_statuses"`
	} `yaml:"urgency" json:"urgency"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
}

type RoleConfig struct {
	Description string                  `yaml:"description" json:"description,omitempty"`
	Actions     []domain.Action         `yaml:"actions" json:"actions"`
	Navigation  []string                `yaml:"navigation" json:"navigation"`
	Modules     map[string]ModuleRights `yaml:"modules" json:"modules"`
}

type ModuleRights struct {
	Create bool `yaml:"create" json:"create"`
	Read   bool `yaml:"read" json:"read"`
	Update bool `yaml:"update" json:"update"`
	Delete bool `yaml:"delete" json:"delete"`
	Print  bool `yaml:"print" json:"print"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Lang != "" && c.Lang != domain.LangRU && c.Lang != domain.LangEN {
		return fmt.Errorf("config.lang must be ru or en, got %q", c.Lang)
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("config.roles is required")
	}
	invocable := map[domain.Action]bool{}
	for role, rc := range c.Roles {
		if !role.Valid() {
			return fmt.Errorf("config.roles contains unknown role %q", role)
		}
		for _, a := range rc.Actions {
			if !a.Valid() {
				return fmt.Errorf("role %s lists unknown action %q", role, a)
			}
			invocable[a] = true
		}
		for _, area := range rc.Navigation {
			if !contains(NavigationAreas, area) {
				return fmt.Errorf("role %s lists unknown navigation area %q", role, area)
			}
		}
		for m := range rc.Modules {
			if !contains(Modules, m) {
				return fmt.Errorf("role %s lists unknown module %q", role, m)
			}
		}
	}
	for _, a := range domain.Actions {
		if !invocable[a] {
			return fmt.Errorf("action %s is not invocable by any role", a)
		}
	}
	if c.Urgency.ThresholdDays <= 0 {
		return fmt.Errorf("config.urgency.threshold_days must be positive")
	}
	for _, s := range c.Urgency.PendingStatuses {
		if !s.Valid() {
			return fmt.Errorf("config.urgency.pending_statuses contains unknown status %q", s)
		}
		if s.Terminal() {
			return fmt.Errorf("terminal status %s cannot be pending", s)
		}
	}
	return nil
}

// RoleNames returns configured roles in stable order.
func (c *Config) RoleNames() []domain.Role {
	out := make([]domain.Role, 0, len(c.Roles))
	for r := range c.Roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "ortholine.yml")
}

// Load reads the workspace config, falling back to Default when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
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

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the built-in role table.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

const defaultTemplate = `lang: ru

roles:
  registration:
    description: "Registers patients and opens orders"
    actions: [send_to_medical]
    navigation: [dashboard, orders, personal_files, directions, notifications, print_blanks]
    modules:
      orders: {create: true, read: true, update: true, print: true}
      personal_files: {create: true, read: true, update: true, delete: true, print: true}
      directions: {create: true, read: true, update: true, print: true}

  medical:
    description: "Examines the patient and prepares the medical conclusion"
    actions: [send_to_chief, complete]
    navigation: [dashboard, orders, personal_files, directions, notifications, print_blanks]
    modules:
      orders: {read: true, update: true, print: true}
      personal_files: {read: true, update: true, print: true}
      directions: {read: true, update: true, print: true}

  chief_doctor:
    description: "Approves, rejects or returns orders"
    actions: [approve, reject, return_for_revision]
    navigation: [dashboard, orders, personal_files, reports, notifications]
    modules:
      orders: {read: true, print: true}
      personal_files: {read: true}
      reports: {read: true, print: true}

  dispatcher:
    description: "Pushes approved orders to a department"
    actions: [assign_to_production]
    navigation: [dashboard, orders, materials, notifications]
    modules:
      orders: {read: true, update: true}
      materials: {read: true}

  workshop:
    description: "Manufactures the device"
    actions: [mark_ready]
    navigation: [dashboard, orders, materials, notifications, print_blanks]
    modules:
      orders: {read: true, print: true}
      materials: {read: true, update: true}

  warehouse:
    description: "Issues finished devices"
    actions: [complete]
    navigation: [dashboard, orders, invoices, materials, notifications, print_blanks]
    modules:
      orders: {read: true}
      invoices: {create: true, read: true, update: true, delete: true, print: true}
      materials: {create: true, read: true, update: true, delete: true}

  administration:
    description: "Oversees the whole pipeline"
    actions: [complete]
    navigation: [dashboard, orders, personal_files, invoices, directions, materials, reports, notifications, print_blanks]
    modules:
      orders: {create: true, read: true, update: true, delete: true, print: true}
      personal_files: {read: true, print: true}
      invoices: {read: true, print: true}
      directions: {read: true, print: true}
      materials: {read: true}
      reports: {read: true, print: true}

urgency:
  threshold_days: 7
  pending_statuses: [registration_pending, medical_review, chief_approval, dispatcher_assignment]

log:
  level: info
  format: text
`
