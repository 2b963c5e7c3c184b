package redisfeed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed/feedtest"
)

// Set PETO_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run against a
// live server.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("PETO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PETO_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("connect %s: %v", url, err)
	}
	t.Cleanup(func() { _ = s.Close() })

	feedtest.Run(t, s)
}
