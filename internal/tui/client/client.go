// Package client connects the room view to a running daemon.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
	*api.Client
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := api.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, Client: api.NewClient(conn)}, nil
}

// Probe reports whether a daemon answers on socketPath.
func Probe(socketPath string) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

// WaitFor polls the daemon until it answers or timeout passes.
func WaitFor(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
