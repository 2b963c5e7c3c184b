// Package credentials supplies the access token attached to every backend
// request.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken means no token is stored for the profile.
	ErrNoToken = errors.New("no access token")
	// ErrExpired means the stored token is a JWT whose exp claim has passed.
	ErrExpired = errors.New("access token expired")
)

// Provider returns the token to present to the backend.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Token implements Provider.
func (f ProviderFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Static returns a Provider that always yields token.
func Static(token string) Provider {
	return ProviderFunc(func(context.Context) (string, error) {
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	})
}

// File reads the token from a file on every call so that a login from another
// process is picked up without restarting the daemon. A non-empty override
// (from config or environment) wins over the file.
type File struct {
	path     string
	override string
	now      func() time.Time
}

// NewFile creates a file-backed provider.
func NewFile(path, override string) *File {
	return &File{path: path, override: override, now: time.Now}
}

// Token implements Provider.
func (f *File) Token(_ context.Context) (string, error) {
	token := strings.TrimSpace(f.override)
	if token == "" {
		data, err := os.ReadFile(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		return "", ErrNoToken
	}
	if err := checkExpiry(token, f.now()); err != nil {
		return "", err
	}
	return token, nil
}

// Save stores token at the provider's path with owner-only permissions.
func (f *File) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(strings.TrimSpace(token)+"\n"), 0600)
}

// checkExpiry rejects JWTs whose exp claim is in the past. Opaque tokens are
// accepted as-is; the backend is the authority on those.
func checkExpiry(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !now.Before(exp.Time) {
		return fmt.Errorf("%w at %s", ErrExpired, exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
