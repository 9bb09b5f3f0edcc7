// Package auth implements the static credential gate and the per-session
// authentication state that sits in front of the risk form.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Credentials maps a username to its bcrypt password hash.
type Credentials map[string]string

// Gate checks logins against a fixed set of credentials.
type Gate struct {
	creds Credentials
	// compared against for unknown users so both paths cost one bcrypt run
	dummy []byte
}

func NewGate(creds Credentials) *Gate {
	cp := make(Credentials, len(creds))
	for user, hash := range creds {
		cp[user] = hash
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	return &Gate{creds: cp, dummy: dummy}
}

// Authenticate succeeds only when username is known and password matches its
// stored hash exactly.
func (g *Gate) Authenticate(username, password string) error {
	hash, ok := g.creds[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(g.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Users returns how many accounts the gate knows.
func (g *Gate) Users() int {
	return len(g.creds)
}

// HashPassword produces a hash suitable for Credentials.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ParseCredentials reads "user:hash,user:hash". Hashes never contain ':' or ','.
func ParseCredentials(raw string) (Credentials, error) {
	creds := Credentials{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, hash, ok := strings.Cut(pair, ":")
		user, hash = strings.TrimSpace(user), strings.TrimSpace(hash)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("malformed credential entry %q", pair)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("credential for %q is not a bcrypt hash: %w", user, err)
		}
		creds[user] = hash
	}
	return creds, nil
}

// LoadCredentialsFile reads a JSON object of username to bcrypt hash.
func LoadCredentialsFile(path string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	for user, hash := range creds {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("credential for %q is not a bcrypt hash: %w", user, err)
		}
	}
	return creds, nil
}
