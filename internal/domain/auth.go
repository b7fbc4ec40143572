package domain

// AnonymousDatabaseRole is the database role used when a request carries no identity.
const AnonymousDatabaseRole = "app_anonymous"

// AnonymousUserID is the current_user_id setting used without an identity.
const AnonymousUserID = "0"

// Identity is the verified caller attached to a single request.
type Identity struct {
	SubjectID string
	Role      Role
	Email     string
}

// SessionSettings are applied to the database session for one request so
// the data layer can enforce its own access policy.
type SessionSettings struct {
	Role   string
	UserID string
}

// DatabaseRole returns the Postgres role name backing r.
func (r Role) DatabaseRole() string {
	return "app_" + string(r)
}

// SettingsFor derives session settings from an optional identity.
func SettingsFor(identity *Identity) SessionSettings {
	if identity == nil || identity.SubjectID == "" || !identity.Role.Valid() {
		return SessionSettings{Role: AnonymousDatabaseRole, UserID: AnonymousUserID}
	}
	return SessionSettings{Role: identity.Role.DatabaseRole(), UserID: identity.SubjectID}
}
