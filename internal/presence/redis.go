package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel pub/sub channel for room presence changes
const Channel = "presence_updates"

// RoomTTL expiry of a room's presence set, refreshed on every join
const RoomTTL = 24 * time.Hour

// Action presence change kind
type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
)

// Event published on every change
type Event struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Action   Action `json:"action"`
	ServerID string `json:"server_id"` // multi-server fan-in
	At       int64  `json:"at"`
}

// Manager mirrors room membership into Redis sets.
type Manager struct {
	client   *redis.Client
	serverID string
}

// NewManager connects to addr
func NewManager(addr, password string, db int, serverID string) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	return NewManagerWithClient(rdb, serverID)
}

// NewManagerWithClient wraps an existing client
func NewManagerWithClient(client *redis.Client, serverID string) *Manager {
	return &Manager{client: client, serverID: serverID}
}

func roomKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s", roomID)
}

// Join adds userID to the room set and publishes the change.
func (m *Manager) Join(ctx context.Context, roomID, userID string) error {
	key := roomKey(roomID)
	pipe := m.client.TxPipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence join %s/%s: %w", roomID, userID, err)
	}
	return m.publish(ctx, roomID, userID, ActionJoin)
}

// Leave removes userID from the room set and publishes the change.
func (m *Manager) Leave(ctx context.Context, roomID, userID string) error {
	if err := m.client.SRem(ctx, roomKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("presence leave %s/%s: %w", roomID, userID, err)
	}
	return m.publish(ctx, roomID, userID, ActionLeave)
}

// Members user ids present in roomID across servers, sorted
func (m *Manager) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := m.client.SMembers(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members %s: %w", roomID, err)
	}
	sort.Strings(members)
	return members, nil
}

func (m *Manager) publish(ctx context.Context, roomID, userID string, action Action) error {
	data, err := json.Marshal(Event{
		RoomID:   roomID,
		UserID:   userID,
		Action:   action,
		ServerID: m.serverID,
		At:       time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, Channel, data).Err()
}

// Subscribe presence change stream
func (m *Manager) Subscribe(ctx context.Context) *redis.PubSub {
	return m.client.Subscribe(ctx, Channel)
}

// Ping checks connectivity
func (m *Manager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	return m.client.Close()
}
