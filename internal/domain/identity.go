package domain

// Identity is the caller as resolved by the upstream gateway. The store only
// passes it to a Policy; it never inspects roles itself.
type Identity struct {
	Subject     string
	Roles       []string
	PropertyIDs []string
}

// IsZero reports whether no caller was supplied.
func (i Identity) IsZero() bool { return i.Subject == "" }

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Policy is the external authorization decision. Implementations live
// outside the core; see adapters/auth.
type Policy interface {
	Allowed(id Identity, propertyID string, action Action) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(id Identity, propertyID string, action Action) bool

func (f PolicyFunc) Allowed(id Identity, propertyID string, action Action) bool {
	return f(id, propertyID, action)
}
