package models

import "time"

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RevokedTokenEntry is a denylist record keyed by the exact token string.
// Once present the token is never valid again, regardless of its own
// unexpired signature. Entries past ExpiresAt are disposable.
type RevokedTokenEntry struct {
	Token     string    `json:"token" dynamodbav:"token"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}
