package service

import "errors"

// Domain failures are typed so the HTTP layer can map them
// deterministically. Anything else that escapes a service method is an
// unexpected internal error (store connectivity and the like).
var (
	// ErrBadCredentials covers both unknown username and wrong password;
	// callers must not be able to tell the two apart.
	ErrBadCredentials = errors.New("invalid username or password")

	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")

	ErrResetTokenInvalid = errors.New("password reset token is invalid")
	ErrResetTokenExpired = errors.New("password reset token has expired")

	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)
