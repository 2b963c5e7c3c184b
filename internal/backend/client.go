package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/HornetGeek/petow-frontend-sub000/internal/credentials"
	"github.com/HornetGeek/petow-frontend-sub000/internal/metrics"
)

var (
	// ErrUnauthorized means the backend rejected the credentials; the user
	// must sign in again.
	ErrUnauthorized = errors.New("session invalid")
	// ErrNotFound means the addressed resource does not exist.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for non-2xx responses not covered by the sentinels.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Code, e.Body)
}

// Client talks to the marketplace REST backend.
type Client struct {
	baseURL string
	scheme  string
	creds   credentials.Provider
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAuthScheme sets the Authorization scheme (default "Bearer").
func WithAuthScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// New creates a backend client rooted at baseURL (e.g. https://host/api).
func New(baseURL string, creds credentials.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		scheme:  "Bearer",
		creds:   creds,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RoomByFeedID fetches the room whose real-time feed is feedID.
func (c *Client) RoomByFeedID(ctx context.Context, feedID string) (*Room, error) {
	var room Room
	path := "/chat/rooms/by-feed/" + url.PathEscape(feedID) + "/"
	if err := c.doJSON(ctx, "room_by_feed", http.MethodGet, path, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomContext fetches participants, pet and request summary for a room.
func (c *Client) RoomContext(ctx context.Context, roomID int64) (*RoomContext, error) {
	var rc RoomContext
	path := fmt.Sprintf("/chat/rooms/%d/context/", roomID)
	if err := c.doJSON(ctx, "room_context", http.MethodGet, path, nil, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// UploadChatImage uploads an image out-of-band and returns its public URL.
func (c *Client) UploadChatImage(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Name))
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	var resp uploadResponse
	if err := c.do(ctx, "upload_image", http.MethodPost, "/chat/upload-image/", mw.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("upload_image: response carried no url")
	}
	return resp.URL, nil
}

// SendChatNotification asks the backend to push a notification about a new
// message in feedID to the counterpart.
func (c *Client) SendChatNotification(ctx context.Context, feedID, text string) error {
	return c.doJSON(ctx, "notify", http.MethodPost, "/notifications/chat-message/", notificationRequest{FeedID: feedID, Message: text}, nil)
}

// ArchiveRoom marks the room inactive.
func (c *Client) ArchiveRoom(ctx context.Context, roomID int64) error {
	return c.doJSON(ctx, "archive", http.MethodPost, fmt.Sprintf("/chat/rooms/%d/archive/", roomID), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(op, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	}()

	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", c.scheme+" "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
