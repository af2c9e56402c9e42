package misskey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"yakudo-bot/internal/platform"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// streamMessage is the envelope of every message on the streaming socket.
type streamMessage struct {
	Type string `json:"type"`
	Body struct {
		ID   string          `json:"id"`
		Type string          `json:"type"`
		Body json.RawMessage `json:"body"`
	} `json:"body"`
}

// connectMessage subscribes the socket to a channel.
type connectMessage struct {
	Type string             `json:"type"`
	Body connectMessageBody `json:"body"`
}

type connectMessageBody struct {
	Channel string                 `json:"channel"`
	ID      string                 `json:"id"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// SubscribeHashtag streams notes carrying the given hashtag.
func (c *Client) SubscribeHashtag(ctx context.Context, tag string) (platform.Stream, error) {
	return c.subscribe(ctx, "hashtag", map[string]interface{}{
		"q": [][]string{{tag}},
	})
}

// SubscribeMain streams account-scoped events (follows etc.).
func (c *Client) SubscribeMain(ctx context.Context) (platform.Stream, error) {
	return c.subscribe(ctx, "main", nil)
}

// subscribe dials the streaming endpoint and connects one channel on it.
func (c *Client) subscribe(ctx context.Context, channel string, params map[string]interface{}) (platform.Stream, error) {
	scheme := "wss"
	if !c.secure {
		scheme = "ws"
	}
	endpoint := url.URL{
		Scheme:   scheme,
		Host:     c.instance,
		Path:     "/streaming",
		RawQuery: url.Values{"i": {c.token}}.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to streaming endpoint: %w", err)
	}

	channelID := uuid.NewString()
	msg := connectMessage{
		Type: "connect",
		Body: connectMessageBody{
			Channel: channel,
			ID:      channelID,
			Params:  params,
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect %s channel: %w", channel, err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	s := &stream{
		conn:      conn,
		channelID: channelID,
		done:      make(chan struct{}),
	}
	go s.keepAlive()

	return s, nil
}

// stream is a live subscription to one streaming channel.
type stream struct {
	conn      *websocket.Conn
	channelID string
	done      chan struct{}
}

// keepAlive pings the server until the stream is closed so intermediaries do
// not drop the idle connection.
func (s *stream) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Next blocks until the next event for this channel arrives. Any transport
// error invalidates the stream; the caller is expected to reconnect.
func (s *stream) Next() (platform.Event, error) {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return platform.Event{}, err
		}

		var msg streamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return platform.Event{}, fmt.Errorf("failed to read stream message: %w", err)
		}

		if msg.Type != "channel" || msg.Body.ID != s.channelID {
			continue
		}

		switch msg.Body.Type {
		case "note":
			var note platform.Note
			if err := json.Unmarshal(msg.Body.Body, &note); err != nil {
				return platform.Event{}, fmt.Errorf("failed to decode note event: %w", err)
			}
			return platform.Event{Note: &note}, nil

		case "followed":
			var user platform.User
			if err := json.Unmarshal(msg.Body.Body, &user); err != nil {
				return platform.Event{}, fmt.Errorf("failed to decode followed event: %w", err)
			}
			return platform.Event{Followed: &user}, nil

		default:
			// Other channel events (renotes, mentions, ...) are not consumed.
			continue
		}
	}
}

// Close tears down the subscription and the underlying connection.
func (s *stream) Close() error {
	close(s.done)
	return s.conn.Close()
}
