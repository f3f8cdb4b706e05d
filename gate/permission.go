package gate

import "strings"

// Permission grants an action on a resource type, written "resource:action".
// Either half may be the wildcard "*".
type Permission string

const (
	Wildcard                        = "*"
	PermissionSuperAdmin Permission = "*:*"
)

func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Split returns the resource and action halves; both are empty when the
// permission is malformed.
func (p Permission) Split() (resource string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok || res == "" || act == "" {
		return "", ""
	}
	return res, Action(act)
}

// Valid reports whether both halves are present.
func (p Permission) Valid() bool {
	res, _ := p.Split()
	return res != ""
}

// Matches reports whether p grants the requested permission.
// "*:*" grants everything, "customer:*" every customer action and
// "*:list" listing on every resource.
func (p Permission) Matches(requested Permission) bool {
	if !p.Valid() || !requested.Valid() {
		return false
	}
	res, act := p.Split()
	reqRes, reqAct := requested.Split()
	return (res == Wildcard || res == reqRes) && (string(act) == Wildcard || act == reqAct)
}
