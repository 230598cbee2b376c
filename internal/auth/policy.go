package auth

// Operation is an action a principal asks to perform. The set is closed:
// ListAll, UpdateUser, DeleteAccount and ViewOwn.
type Operation interface {
	operation()
}

// ListAll lists every user account.
type ListAll struct{}

// UpdateUser changes the account named Target.
type UpdateUser struct{ Target string }

// DeleteAccount removes the account named Target.
type DeleteAccount struct{ Target string }

// ViewOwn reads the caller's own profile.
type ViewOwn struct{}

func (ListAll) operation()       {}
func (UpdateUser) operation()    {}
func (DeleteAccount) operation() {}
func (ViewOwn) operation()       {}

// Decision is the outcome of Decide.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Decide applies the owner-or-admin rules. Deletion has no admin override.
// Unknown operations are denied.
func Decide(p Principal, op Operation) Decision {
	switch o := op.(type) {
	case ListAll:
		return Decision(p.IsAdmin())
	case UpdateUser:
		return Decision(p.isSelf(o.Target) || p.IsAdmin())
	case DeleteAccount:
		return Decision(p.isSelf(o.Target))
	case ViewOwn:
		return Allow
	default:
		return Deny
	}
}

func (p Principal) isSelf(username string) bool {
	return p.Username != "" && p.Username == username
}
