package domain

// Role is the access-control discriminator carried by every user. It is only
// ever written from data the server returned.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleCustomer, RoleProvider, RoleAdmin}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Address is an optional postal address attached to a user profile.
type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// User models the authenticated actor as last reported by the server.
type User struct {
	ID           string   `json:"id" bson:"id"`
	FirstName    string   `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Email        string   `json:"email,omitempty" bson:"email,omitempty"`
	Phone        string   `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      *Address `json:"address,omitempty" bson:"address,omitempty"`
	ProfileImage string   `json:"profile_image,omitempty" bson:"profile_image,omitempty"`
	Role         Role     `json:"role" bson:"role"`
}

// Clone returns a deep copy so callers never share the Address pointer.
func (u User) Clone() User {
	if u.Address != nil {
		addr := *u.Address
		u.Address = &addr
	}
	return u
}

// DisplayName returns the best human-readable name for u.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// UserPatch is a partial user as returned by the profile endpoint. Nil fields
// were absent from the response and must be kept from the prior value.
type UserPatch struct {
	ID           string
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	Address      *Address
	ProfileImage *string
	Role         *Role
}

// Merge applies p over u (shallow merge) and returns the result.
func (u User) Merge(p UserPatch) User {
	out := u.Clone()
	if p.ID != "" {
		out.ID = p.ID
	}
	if p.FirstName != nil {
		out.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		out.LastName = *p.LastName
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	if p.Address != nil {
		addr := *p.Address
		out.Address = &addr
	}
	if p.ProfileImage != nil {
		out.ProfileImage = *p.ProfileImage
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	return out
}
