package session

// User is the authenticated admin's profile, set from the login payload or
// hydrated from the profile endpoint. Nil until one of those succeeds.
type User struct {
	ID        int64  `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	IsActive  bool   `json:"is_active,omitempty"`
}

// FullName composes the display name, falling back to the username when no
// name parts are set.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}
