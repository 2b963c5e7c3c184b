package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileToken(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		override string
		want     string
		wantErr  error
	}{
		{"opaque token", "abc123\n", "", "abc123", nil},
		{"override wins", "from-file", "from-env", "from-env", nil},
		{"blank file", "  \n", "", "", ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token")
			if err := os.WriteFile(path, []byte(tt.contents), 0600); err != nil {
				t.Fatal(err)
			}
			got, err := NewFile(path, tt.override).Token(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Token() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Token() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileTokenMissing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "token"), "").Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestFileTokenJWTExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	f := NewFile(path, "")

	valid := signed(t, time.Now().Add(time.Hour))
	if err := f.Save(valid); err != nil {
		t.Fatal(err)
	}
	got, err := f.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() with valid JWT error = %v", err)
	}
	if got != valid {
		t.Error("Token() returned a different token than saved")
	}

	if err := f.Save(signed(t, time.Now().Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Token(context.Background()); !errors.Is(err, ErrExpired) {
		t.Errorf("Token() with expired JWT error = %v, want ErrExpired", err)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	if err := NewFile(path, "").Save("abc"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token permission = %o, want 0600", perm)
	}
}

func TestStatic(t *testing.T) {
	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("Static(\"\") error = %v, want ErrNoToken", err)
	}
	got, err := Static("tok").Token(context.Background())
	if err != nil || got != "tok" {
		t.Errorf("Static(tok) = %q, %v", got, err)
	}
}
