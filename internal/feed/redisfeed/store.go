// Package redisfeed is a hosted feed store on Redis. Each feed is a sorted
// set of message ids scored by server time, a hash of message bodies, a
// metadata hash, and a pub/sub channel announcing writes.
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
)

// Store handles Redis operations for feeds and metadata records.
type Store struct {
	client *redis.Client
}

// New connects to redisURL and checks the connection.
func New(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Store{client: client}, nil
}

// Close implements feed.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func messagesKey(feedID string) string {
	return fmt.Sprintf("feed:%s:messages", feedID)
}

func bodiesKey(feedID string) string {
	return fmt.Sprintf("feed:%s:bodies", feedID)
}

func metaKey(feedID string) string {
	return fmt.Sprintf("feed:%s:meta", feedID)
}

func changedChannel(feedID string) string {
	return fmt.Sprintf("feed:%s:changed", feedID)
}

// serverNow is the Redis clock in unix ms.
const serverNow = `
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
`

// addScript stamps the message with the server clock, never earlier than the
// newest message already in the feed, and announces the write.
var addScript = redis.NewScript(serverNow + `
local last = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if last[2] then
  local l = tonumber(last[2])
  if l > now then now = l end
end
redis.call('ZADD', KEYS[1], now, ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('PUBLISH', ARGV[3], ARGV[1])
return now
`)

// setMetaScript replaces the record; zero stamps take the server clock.
var setMetaScript = redis.NewScript(serverNow + `
local created = tonumber(ARGV[4])
local updated = tonumber(ARGV[5])
if created == 0 then created = now end
if updated == 0 then updated = now end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1],
  'last_message', ARGV[1], 'last_sender_id', ARGV[2], 'last_message_at', ARGV[3],
  'created_at', string.format('%d', created), 'updated_at', string.format('%d', updated),
  'participants', ARGV[6], 'active', ARGV[7])
return 1
`)

// updateMetaScript returns 0 when there is no record to update.
var updateMetaScript = redis.NewScript(serverNow + `
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1],
  'last_message', ARGV[1], 'last_sender_id', ARGV[2],
  'last_message_at', string.format('%d', now), 'updated_at', string.format('%d', now))
return 1
`)

// classify maps Redis ACL refusals onto the feed error classes.
func classify(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	if strings.HasPrefix(err.Error(), "NOPERM") {
		return fmt.Errorf("%w: %v", feed.ErrPermissionDenied, err)
	}
	return err
}

// AddMessage implements feed.Store.
func (s *Store) AddMessage(ctx context.Context, feedID string, m feed.Message) (*feed.Message, error) {
	m.ID = ulid.Make().String()
	m.FeedID = feedID
	m.Timestamp = 0

	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	ts, err := addScript.Run(ctx, s.client,
		[]string{messagesKey(feedID), bodiesKey(feedID)},
		m.ID, string(data), changedChannel(feedID)).Int64()
	if err != nil {
		return nil, classify(err)
	}
	m.Timestamp = ts
	return &m, nil
}

// Snapshot returns the whole feed in order.
func (s *Store) Snapshot(ctx context.Context, feedID string) ([]feed.Message, error) {
	entries, err := s.client.ZRangeWithScores(ctx, messagesKey(feedID), 0, -1).Result()
	if err != nil {
		return nil, classify(err)
	}
	msgs := make([]feed.Message, 0, len(entries))
	if len(entries) == 0 {
		return msgs, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i], _ = e.Member.(string)
	}
	bodies, err := s.client.HMGet(ctx, bodiesKey(feedID), ids...).Result()
	if err != nil {
		return nil, classify(err)
	}

	for i, body := range bodies {
		raw, ok := body.(string)
		if !ok {
			continue
		}
		var m feed.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		m.Timestamp = int64(entries[i].Score)
		msgs = append(msgs, m)
	}
	feed.SortMessages(msgs)
	return msgs, nil
}

// Exists reports whether feedID has any message or a metadata record.
func (s *Store) Exists(ctx context.Context, feedID string) (bool, error) {
	n, err := s.client.Exists(ctx, messagesKey(feedID), metaKey(feedID)).Result()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// GetMeta implements feed.Store.
func (s *Store) GetMeta(ctx context.Context, feedID string) (*feed.Meta, error) {
	fields, err := s.client.HGetAll(ctx, metaKey(feedID)).Result()
	if err != nil {
		return nil, classify(err)
	}
	if len(fields) == 0 {
		return nil, feed.ErrNotFound
	}
	return decodeMeta(fields)
}

func decodeMeta(fields map[string]string) (*feed.Meta, error) {
	num := func(k string) int64 {
		n, _ := strconv.ParseInt(fields[k], 10, 64)
		return n
	}
	m := &feed.Meta{
		LastMessage:   fields["last_message"],
		LastSenderID:  num("last_sender_id"),
		LastMessageAt: num("last_message_at"),
		CreatedAt:     num("created_at"),
		UpdatedAt:     num("updated_at"),
		Active:        fields["active"] == "1",
	}
	if raw := fields["participants"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	return m, nil
}

// SetMeta implements feed.Store.
func (s *Store) SetMeta(ctx context.Context, feedID string, m feed.Meta) error {
	if m.Participants == nil {
		m.Participants = []int64{}
	}
	participants, err := json.Marshal(m.Participants)
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}
	active := "0"
	if m.Active {
		active = "1"
	}
	err = setMetaScript.Run(ctx, s.client, []string{metaKey(feedID)},
		m.LastMessage, m.LastSenderID, m.LastMessageAt, m.CreatedAt, m.UpdatedAt,
		string(participants), active).Err()
	return classify(err)
}

// UpdateMeta implements feed.Store.
func (s *Store) UpdateMeta(ctx context.Context, feedID string, u feed.MetaUpdate) error {
	n, err := updateMetaScript.Run(ctx, s.client, []string{metaKey(feedID)},
		u.LastMessage, u.LastSenderID).Int64()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return feed.ErrNotFound
	}
	return nil
}
