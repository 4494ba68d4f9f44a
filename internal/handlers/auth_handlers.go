package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/middleware"
	"github.com/kodprodobro/auth-service/internal/service"
)

type AuthHandlers struct {
	auth   *service.AuthService
	reset  *service.PasswordResetService
	logger *logrus.Logger
}

func NewAuthHandlers(
	auth *service.AuthService,
	reset *service.PasswordResetService,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		auth:   auth,
		reset:  reset,
		logger: logger,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ValidateResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if !isValidUsername(username) {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_USERNAME", "Username must be 3-50 characters (letters, digits, underscore)")
		return
	}
	if !isValidEmail(email) {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
		return
	}
	if len(req.Password) < 8 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_PASSWORD", "Password must be at least 8 characters")
		return
	}

	user, err := h.auth.Register(r.Context(), username, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			h.respondWithError(w, http.StatusBadRequest, "USERNAME_TAKEN", "Username already exists")
		case errors.Is(err, service.ErrEmailTaken):
			h.respondWithError(w, http.StatusBadRequest, "EMAIL_TAKEN", "Email already exists")
		default:
			h.logger.WithError(err).Error("Failed to register user")
			h.respondWithError(w, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register user")
		}
		return
	}

	h.respondWithJSON(w, http.StatusCreated, RegisterResponse{
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.Roles,
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pair, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			h.respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		h.logger.WithError(err).Error("Login failed")
		h.respondWithError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to log in")
		return
	}

	h.respondWithJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Logout revokes the access token the request was authenticated with and,
// when provided, the matching refresh token.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := r.Context().Value(middleware.TokenKey).(string)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	if err := h.auth.Logout(r.Context(), tokenString); err != nil {
		h.logger.WithError(err).Error("Failed to revoke access token")
		h.respondWithError(w, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to log out")
		return
	}

	var req LogoutRequest
	json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken != "" {
		if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
			h.logger.WithError(err).Error("Failed to revoke refresh token")
			h.respondWithError(w, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to log out")
			return
		}
	}

	h.respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(middleware.ClaimsKey).(*service.Claims)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}

	h.respondWithJSON(w, http.StatusOK, ValidateResponse{
		Username: claims.Subject,
		Roles:    claims.Roles,
	})
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	h.Validate(w, r)
}

// ForgotPassword answers identically whether or not the email is
// registered.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if !isValidEmail(email) {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
		return
	}

	if err := h.reset.Initiate(r.Context(), email); err != nil {
		h.logger.WithError(err).Error("Failed to initiate password reset")
		h.respondWithError(w, http.StatusInternalServerError, "RESET_FAILED", "Failed to initiate password reset")
		return
	}

	h.respondWithJSON(w, http.StatusOK, MessageResponse{
		Message: "If this email is registered, reset instructions were sent",
	})
}

func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Token == "" {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Reset token is required")
		return
	}
	if len(req.NewPassword) < 8 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_PASSWORD", "Password must be at least 8 characters")
		return
	}

	if err := h.reset.Consume(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrResetTokenInvalid):
			h.respondWithError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Reset token is invalid")
		case errors.Is(err, service.ErrResetTokenExpired):
			h.respondWithError(w, http.StatusBadRequest, "RESET_TOKEN_EXPIRED", "Reset token has expired")
		default:
			h.logger.WithError(err).Error("Failed to reset password")
			h.respondWithError(w, http.StatusInternalServerError, "RESET_FAILED", "Failed to reset password")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func isValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
