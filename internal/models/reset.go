package models

import "time"

// PasswordResetToken is a single-use proof of email ownership. It is
// deleted on successful use, when found expired, or by the periodic sweep.
type PasswordResetToken struct {
	Token     string    `json:"token" dynamodbav:"token"`
	Username  string    `json:"username" dynamodbav:"username"`
	Email     string    `json:"email" dynamodbav:"email"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
