package certificate

import "strings"

// Role is the meaning a column plays on a certificate.
type Role string

const (
	RoleIdentifier Role = "identifier"
	RoleName       Role = "name"
	RoleCourse     Role = "course"
	RoleDate       Role = "date"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleIdentifier, RoleName, RoleCourse, RoleDate}

// noPosition marks a role without a positional fallback.
const noPosition = -1

// roleRule is the resolution recipe for one role: keyword match first, then a
// fixed column position.
type roleRule struct {
	role     Role
	keywords []string
	position int
}

var roleRules = []roleRule{
	{role: RoleIdentifier, keywords: []string{"id"}, position: 0},
	{role: RoleName, keywords: []string{"name"}, position: 1},
	{role: RoleCourse, keywords: []string{"course", "subject"}, position: 2},
	{role: RoleDate, keywords: []string{"date"}, position: noPosition},
}

// ColumnRoleMap maps each resolved role to its column name. Unresolved roles
// are absent.
type ColumnRoleMap map[Role]string

// Column returns the column resolved for role.
func (m ColumnRoleMap) Column(role Role) (string, bool) {
	col, ok := m[role]
	return col, ok
}

// ResolveColumns infers the role of each header. It never fails: a role with no
// keyword match uses its fallback position, and a role whose position is out of
// range is left unresolved. The result depends only on headers.
func ResolveColumns(headers []string) ColumnRoleMap {
	roles := make(ColumnRoleMap, len(roleRules))

	for _, rule := range roleRules {
		if col, ok := matchKeyword(headers, rule.keywords); ok {
			roles[rule.role] = col
			continue
		}
		if rule.position != noPosition && rule.position < len(headers) {
			roles[rule.role] = headers[rule.position]
		}
	}
	return roles
}

// matchKeyword returns the first header containing any keyword, ignoring case.
func matchKeyword(headers, keywords []string) (string, bool) {
	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return h, true
			}
		}
	}
	return "", false
}
