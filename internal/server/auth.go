// Package server provides the HTTP REST API for the accessibility remediator.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/a11y-remediator/internal/config"
)

// AdminCredentials holds the single operator account the API authenticates against.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// LoadAdminCredentials reads the operator account from the environment.
// ADMIN_USERNAME defaults to "admin". ADMIN_PASSWORD_HASH must hold a bcrypt
// hash produced with the same pepper the server runs with. Returns nil when
// no hash is configured, which disables login.
func LoadAdminCredentials() *AdminCredentials {
	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if hash == "" {
		return nil
	}
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	return &AdminCredentials{Username: username, PasswordHash: hash}
}

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token issued on successful login.
type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	admin      *AdminCredentials
	passwords  *config.PasswordConfig
	jwtService *JWTService
	validator  *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(admin *AdminCredentials, passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		admin:      admin,
		passwords:  passwords,
		jwtService: jwtService,
		validator:  validator.New(),
	}
}

// Login handles operator login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		validationErrors := extractValidationErrors(err)
		http.Error(w, validationErrors, http.StatusBadRequest)
		return
	}

	if h.admin == nil {
		http.Error(w, "Login is not configured on this server", http.StatusServiceUnavailable)
		return
	}

	// Evaluate both checks so a bad username costs the same as a bad password.
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) == 1
	passwordOK := h.passwords.VerifyPassword(req.Password, h.admin.PasswordHash)
	if !usernameOK || !passwordOK {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwtService.GenerateToken(h.admin.Username)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := LoginResponse{
		Username: h.admin.Username,
		Token:    token,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error but response already sent
		return
	}
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
