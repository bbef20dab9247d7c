package auth

import (
	"ortholine/internal/config"
	"ortholine/internal/domain"
)

// Op is a CRUD/print operation on a presentation module.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpPrint  Op = "print"
)

// Capabilities is the presentation-layer view of a role.
type Capabilities struct {
	Role       domain.Role                    `json:"role"`
	Label      string                         `json:"label"`
	Actions    []domain.Action                `json:"actions"`
	Navigation []string                       `json:"navigation"`
	Modules    map[string]config.ModuleRights `json:"modules"`
}

// Table is the immutable role permission table. It is built once from config.
type Table struct {
	actions map[domain.Role]map[domain.Action]bool
	roles   map[domain.Role]config.RoleConfig
}

func New(cfg *config.Config) *Table {
	t := &Table{
		actions: make(map[domain.Role]map[domain.Action]bool, len(cfg.Roles)),
		roles:   make(map[domain.Role]config.RoleConfig, len(cfg.Roles)),
	}
	for role, rc := range cfg.Roles {
		set := make(map[domain.Action]bool, len(rc.Actions))
		for _, a := range rc.Actions {
			set[a] = true
		}
		t.actions[role] = set
		t.roles[role] = rc
	}
	return t
}

// Check fails with PermissionDeniedError unless role may invoke action.
func (t *Table) Check(role domain.Role, action domain.Action) error {
	if t.actions[role][action] {
		return nil
	}
	return domain.PermissionDeniedError{Role: role, Action: action}
}

// Allowed returns the actions role may invoke, in pipeline order.
func (t *Table) Allowed(role domain.Role) []domain.Action {
	var out []domain.Action
	for _, a := range domain.Actions {
		if t.actions[role][a] {
			out = append(out, a)
		}
	}
	return out
}

// RolesFor returns every role that may invoke action.
func (t *Table) RolesFor(action domain.Action) []domain.Role {
	var out []domain.Role
	for _, r := range domain.Roles {
		if t.actions[r][action] {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) Capabilities(role domain.Role, lang domain.Lang) (Capabilities, bool) {
	rc, ok := t.roles[role]
	if !ok {
		return Capabilities{}, false
	}
	modules := make(map[string]config.ModuleRights, len(rc.Modules))
	for k, v := range rc.Modules {
		modules[k] = v
	}
	return Capabilities{
		Role:       role,
		Label:      domain.RoleLabel(role, lang),
		Actions:    t.Allowed(role),
		Navigation: append([]string(nil), rc.Navigation...),
		Modules:    modules,
	}, true
}

// Can reports a CRUD/print right on a presentation module.
func (t *Table) Can(role domain.Role, module string, op Op) bool {
	rights, ok := t.roles[role].Modules[module]
	if !ok {
		return false
	}
	switch op {
	case OpCreate:
		return rights.Create
	case OpRead:
		return rights.Read
	case OpUpdate:
		return rights.Update
	case OpDelete:
		return rights.Delete
	case OpPrint:
		return rights.Print
	default:
		return false
	}
}

// Sees reports whether a navigation area is visible to role.
func (t *Table) Sees(role domain.Role, area string) bool {
	for _, a := range t.roles[role].Navigation {
		if a == area {
			return true
		}
	}
	return false
}
