package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// Actor is the caller a request runs as. It is resolved once per request
// from the bearer token and passed by value into every service call.
type Actor struct {
	UserID string
	Role   string
	Email  string
	Name   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) Anonymous() bool { return a.UserID == "" }

// Is reports whether the actor is the user with the given id.
func (a Actor) Is(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}

// DisplayName falls back to the email when no name is known.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
