package team

import "strings"

// DefaultLeadRole is the fallback when no specialty maps to a lead
// role.
const DefaultLeadRole = "orchestrator"

// Router maps specialties to worker roles. It is a pure lookup table
// so deployments can swap the mapping through configuration.
type Router struct {
	roles    map[string]string
	leadRole string
}

// defaultRoles is the built-in specialty→role table.
var defaultRoles = map[string]string{
	"writer":     "content specialist",
	"designer":   "design specialist",
	"developer":  "engineering specialist",
	"researcher": "research specialist",
	"analyst":    "analysis specialist",
	"marketer":   "outreach specialist",
	"planner":    "planning specialist",
}

// NewRouter creates a router with the built-in table. A nil or empty
// overrides map keeps the defaults; entries override per specialty.
func NewRouter(overrides map[string]string) *Router {
	roles := make(map[string]string, len(defaultRoles)+len(overrides))
	for k, v := range defaultRoles {
		roles[k] = v
	}
	for k, v := range overrides {
		roles[strings.ToLower(k)] = v
	}
	return &Router{roles: roles, leadRole: DefaultLeadRole}
}

// RoleFor returns the role for a specialty, falling back to a generic
// specialist role for unmapped specialties.
func (r *Router) RoleFor(specialty string) string {
	if role, ok := r.roles[strings.ToLower(specialty)]; ok {
		return role
	}
	return specialty + " specialist"
}

// LeadRoleFor picks the lead role for a work item from its first
// required specialty, falling back to the default orchestrator role
// when the item names none.
func (r *Router) LeadRoleFor(specialties []string) string {
	if len(specialties) == 0 {
		return r.leadRole
	}
	return r.RoleFor(specialties[0]) + " lead"
}
