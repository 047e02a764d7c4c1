package domain

// Credentials is the login payload. No structural validation happens in the
// session layer; forms own that.
type Credentials struct {
	Identifier string
	Secret     string
}

// Registration carries the fields submitted by a sign-up form.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	Role      Role
	Address   *Address
}

// ProfilePatch holds the profile fields a consumer wants to change. Nil fields
// are not sent.
type ProfilePatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	Address      *Address
	ProfileImage *string
}

// PasswordChange is the payload of the change-password endpoint.
type PasswordChange struct {
	Current string
	New     string
}

// AuthPayload is what the login and register endpoints return.
type AuthPayload struct {
	User  User
	Token string
}
