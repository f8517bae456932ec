package vault

import "strings"

// Permission is a (resource-pattern, action) pair a role grants. Resource
// patterns support a trailing "*" for prefix matching, e.g.
// "secret/llm-api-key/*".
type Permission struct {
	ResourcePattern string
	Action          string
}

// Role maps a name to the set of permissions it grants.
type Role struct {
	Name        string
	Permissions []Permission
}

// PolicyTable is the read-mostly role table consulted by IsAuthorized: a
// map with rare writes at role (re)definition and frequent concurrent reads
// from every authorization check.
type PolicyTable struct {
	roles map[string]Role
}

func NewPolicyTable(roles ...Role) *PolicyTable {
	t := &PolicyTable{roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		t.roles[r.Name] = r
	}
	return t
}

func (t *PolicyTable) SetRole(r Role) { t.roles[r.Name] = r }

// IsAuthorized returns true iff any role in roleNames permits (resource,
// action). Resource patterns are tested longest-prefix-first so the most
// specific grant wins when multiple patterns could match, and action is
// matched case-sensitively.
func (t *PolicyTable) IsAuthorized(roleNames []string, resource, action string) bool {
	var candidates []Permission
	for _, name := range roleNames {
		role, ok := t.roles[name]
		if !ok {
			continue
		}
		candidates = append(candidates, role.Permissions...)
	}

	best := -1
	bestMatch := false
	for _, p := range candidates {
		if p.Action != action {
			continue
		}
		if !matchesResource(p.ResourcePattern, resource) {
			continue
		}
		specificity := len(strings.TrimSuffix(p.ResourcePattern, "*"))
		if specificity > best {
			best = specificity
			bestMatch = true
		}
	}
	return bestMatch
}

func matchesResource(pattern, resource string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(resource, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == resource
}

// IntersectRoles returns the subset of requested that also appears in
// permitted, preserving requested's order. Used by generate-token to grant
// only the roles a service is actually permitted.
func IntersectRoles(requested, permitted []string) []string {
	allowed := make(map[string]struct{}, len(permitted))
	for _, r := range permitted {
		allowed[r] = struct{}{}
	}
	var out []string
	for _, r := range requested {
		if _, ok := allowed[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
