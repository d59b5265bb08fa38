// Package config provides password configuration and hashing functionality.
package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds accepted from the environment. Below 10 is too cheap
// for an internet-facing login; above 14 a single verification stalls the
// request for seconds.
const (
	minBcryptCost = 10
	maxBcryptCost = 14
)

// PasswordConfig holds the bcrypt cost and optional pepper used to protect
// the review server's operator credential.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string
}

// NewPasswordConfig creates a new password configuration from environment
// variables. It reads BCRYPT_COST (default: 12) and optionally
// PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &PasswordConfig{
		BcryptCost: cost,
		Pepper:     os.Getenv("PASSWORD_PEPPER"),
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-%d)", c.BcryptCost, minBcryptCost, maxBcryptCost)
	}
	return nil
}

// material returns the bytes bcrypt operates on. With a pepper configured
// the password is first keyed through HMAC-SHA256, which also keeps inputs
// of any length within bcrypt's 72-byte limit.
func (c *PasswordConfig) material(pw string) []byte {
	if c.Pepper == "" {
		return []byte(pw)
	}
	mac := hmac.New(sha256.New, []byte(c.Pepper))
	mac.Write([]byte(pw))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// HashPassword hashes a password using bcrypt, keyed with the pepper when
// one is configured.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(c.material(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash. The hash must
// have been produced under the same pepper.
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), c.material(pw)) == nil
}
