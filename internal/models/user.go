package models

import (
	"time"
)

const RoleUser = "USER"

type User struct {
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Roles        []string  `json:"roles" dynamodbav:"roles"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (u *User) GetPK() string {
	return "USER#" + u.Username
}

func (u *User) GetSK() string {
	return "METADATA"
}

// GetEmailPK is the key of the pointer item that enforces email
// uniqueness and serves lookup by email in the single-table layout.
func (u *User) GetEmailPK() string {
	return "EMAIL#" + u.Email
}
