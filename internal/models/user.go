package models

// User is a stored account.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"password" db:"password_hash"`
	Name         string `json:"name" db:"name"`
	Role         string `json:"role,omitempty" db:"role"`
}

// PublicUser is the subset of User exposed over the API.
type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Public strips credentials from u.
func (u User) Public() PublicUser {
	role := u.Role
	if role == "" {
		role = "user"
	}
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: role}
}
