package domain

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleBuyer Role = "BUYER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleBuyer
}

// User is an account that can sign in. PasswordHash is empty for users
// created through Firebase sign-in.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	FirebaseUID  string
	Role         Role
	CreatedAt    time.Time
}
