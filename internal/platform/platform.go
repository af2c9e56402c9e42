// Package platform defines the capability interfaces the bot consumes from a
// social platform. The ingestion pipeline, scheduler jobs and follow handling
// all depend on these interfaces only; a concrete platform (Misskey) plugs in
// behind them.
package platform

import (
	"context"
	"strings"
	"time"
)

// User is a platform account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Host     string `json:"host,omitempty"`
}

// File is a media attachment on a note.
type File struct {
	ID          string `json:"id"`
	ContentType string `json:"type"`
	URL         string `json:"url"`
}

// IsImage reports whether the attachment is a still image.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// IsVideo reports whether the attachment is a video.
func (f File) IsVideo() bool {
	return strings.HasPrefix(f.ContentType, "video/")
}

// Note is a platform post.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	User      User      `json:"user"`
	ReplyID   string    `json:"replyId,omitempty"`
	RenoteID  string    `json:"renoteId,omitempty"`
	Files     []File    `json:"files,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client is the platform capability set the bot consumes. Implementations are
// stateless request issuers and safe for concurrent use.
type Client interface {
	// CurrentUser returns the authenticated bot account.
	CurrentUser() User

	GetNote(ctx context.Context, id string) (*Note, error)

	// Quote posts text quoting the given note and returns the created note.
	Quote(ctx context.Context, note *Note, text string) (*Note, error)

	// CreateNote posts a standalone note.
	CreateNote(ctx context.Context, text string) (*Note, error)

	DeleteNote(ctx context.Context, id string) error

	IsFollowing(ctx context.Context, user User) (bool, error)
	Follow(ctx context.Context, user User) error

	// ListFollowers pages through the bot's followers, invoking fn for each.
	// Iteration stops early if fn returns a non-nil error.
	ListFollowers(ctx context.Context, fn func(User) error) error

	// NoteURL returns the public URL of a note on this platform.
	NoteURL(id string) string
}

// Event is a single item delivered by a stream subscription.
type Event struct {
	// Note is set for timeline deliveries.
	Note *Note
	// Followed is set when another account followed the bot.
	Followed *User
}

// Stream is a live subscription. Next blocks until the next event arrives or
// the transport fails; a transport failure invalidates the whole stream.
type Stream interface {
	Next() (Event, error)
	Close() error
}

// StreamSource opens live subscriptions against the platform.
type StreamSource interface {
	// SubscribeHashtag streams notes carrying the given hashtag.
	SubscribeHashtag(ctx context.Context, tag string) (Stream, error)
	// SubscribeMain streams account-scoped events (follows etc.).
	SubscribeMain(ctx context.Context) (Stream, error)
}
