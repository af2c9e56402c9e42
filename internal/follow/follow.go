// Package follow keeps the bot's follow relationships in sync: it follows
// back anyone who follows it, live and at startup.
package follow

import (
	"context"
	"log"
	"time"

	"yakudo-bot/internal/platform"
)

const reconnectBackoff = 5 * time.Second

// Monitor watches the account event stream for new followers.
type Monitor struct {
	client platform.Client
	source platform.StreamSource
}

// New creates a follow monitor.
func New(client platform.Client, source platform.StreamSource) *Monitor {
	return &Monitor{client: client, source: source}
}

// Run consumes the main event stream and follows back every new follower.
// Same reconnect semantics as the note monitor: transport errors wait out the
// backoff and resubscribe; a failed follow is logged and skipped.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stream, err := m.source.SubscribeMain(ctx)
		if err != nil {
			log.Printf("error while subscribing to main stream: %v. retrying...", err)
			if err := sleep(ctx, reconnectBackoff); err != nil {
				return err
			}
			continue
		}

		err = m.consume(ctx, stream)
		stream.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("error while streaming events: %v. retrying...", err)
		if err := sleep(ctx, reconnectBackoff); err != nil {
			return err
		}
	}
}

func (m *Monitor) consume(ctx context.Context, stream platform.Stream) error {
	for {
		event, err := stream.Next()
		if err != nil {
			return err
		}
		if event.Followed == nil {
			continue
		}

		if err := m.client.Follow(ctx, *event.Followed); err != nil {
			log.Printf("failed to follow user @%s: %v", event.Followed.Username, err)
		}
	}
}

// SyncFollowers follows every existing follower the bot does not follow yet.
// Run once at startup to catch follows missed while the bot was down.
func (m *Monitor) SyncFollowers(ctx context.Context) error {
	log.Println("Start following followers")

	return m.client.ListFollowers(ctx, func(user platform.User) error {
		following, err := m.client.IsFollowing(ctx, user)
		if err != nil {
			return err
		}
		if following {
			log.Printf("already following or requested to follow: %s", user.Username)
			return nil
		}

		log.Printf("following: %s", user.Username)
		if err := m.client.Follow(ctx, user); err != nil {
			log.Printf("failed to follow user @%s: %v", user.Username, err)
		}
		return nil
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
